package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/gallery/internal/api/handlers"
	"github.com/Togather-Foundation/gallery/internal/api/middleware"
	"github.com/Togather-Foundation/gallery/internal/audit"
	"github.com/Togather-Foundation/gallery/internal/auth"
	"github.com/Togather-Foundation/gallery/internal/domain/events"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
	"github.com/Togather-Foundation/gallery/internal/metrics"
)

// Deps is everything the router needs. Media is optional and only set when
// the local media driver serves uploads itself.
type Deps struct {
	Environment  string
	RequireHTTPS bool
	MaxUpload    int64
	Version      string
	GitCommit    string
	BuildDate    string

	Events      *events.Service
	Gallery     *gallery.GalleryService
	Submissions *gallery.SubmissionService
	Moderation  *gallery.ModerationService

	Tokens    *auth.JWTManager
	Profiles  middleware.ProfileLookup
	Limiter   *middleware.RateLimiter
	Audit     *audit.Logger
	Readiness handlers.Readiness
	Media     http.Handler
	Logger    zerolog.Logger
}

func NewRouter(deps Deps) http.Handler {
	env := deps.Environment

	eventsHandler := handlers.NewEventsHandler(deps.Events, env)
	galleryHandler := handlers.NewGalleryHandler(deps.Gallery, deps.Submissions, env)
	moderationHandler := handlers.NewModerationHandler(deps.Moderation, deps.Audit, env)
	meHandler := handlers.NewMeHandler(env)
	health := handlers.NewHealthChecker(deps.Readiness, deps.Version, deps.GitCommit)

	authenticate := middleware.Authenticate(deps.Tokens, deps.Profiles, env)
	requireAdmin := middleware.RequireAdmin(env)
	submissionLimit := deps.Limiter.ByProfile(middleware.TierSubmission, env)
	adminLimit := deps.Limiter.ByClientIP(middleware.TierAdmin, env)

	user := func(h http.HandlerFunc) http.Handler {
		return authenticate(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return adminLimit(authenticate(requireAdmin(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", handlers.Healthz())
	mux.Handle("GET /readyz", health.Readyz())
	mux.Handle("GET /version", VersionHandler(deps.Version, deps.GitCommit, deps.BuildDate))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /api/v1/openapi.json", OpenAPIHandler())

	mux.HandleFunc("GET /api/v1/events", eventsHandler.List)
	mux.HandleFunc("GET /api/v1/events/{id}", eventsHandler.Get)
	mux.HandleFunc("GET /api/v1/gallery", galleryHandler.List)
	mux.Handle("POST /api/v1/gallery/submissions",
		middleware.UploadRequestSize(deps.MaxUpload)(authenticate(submissionLimit(http.HandlerFunc(galleryHandler.Submit)))))
	mux.Handle("GET /api/v1/me", user(meHandler.Get))

	mux.Handle("GET /api/v1/admin/images", admin(moderationHandler.List))
	mux.Handle("POST /api/v1/admin/images/{id}/approve", admin(moderationHandler.Approve))
	mux.Handle("POST /api/v1/admin/images/{id}/reject", admin(moderationHandler.Reject))
	mux.Handle("DELETE /api/v1/admin/images/{id}", admin(moderationHandler.Remove))
	mux.Handle("GET /api/v1/admin/summary", admin(moderationHandler.Summary))

	if deps.Media != nil {
		mux.Handle("GET /media/", http.StripPrefix("/media", deps.Media))
	}

	// metrics sits directly on the mux so the matched pattern is visible
	// to it after routing.
	var handler http.Handler = metrics.HTTPMiddleware(mux)
	handler = deps.Limiter.ByClientIP(middleware.TierPublic, env)(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	handler = middleware.SecurityHeaders(deps.RequireHTTPS)(handler)
	return handler
}
