package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Togather-Foundation/gallery/internal/api/middleware"
	"github.com/Togather-Foundation/gallery/internal/auth"
	"github.com/Togather-Foundation/gallery/internal/domain/events"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery/gallerytest"
	"github.com/Togather-Foundation/gallery/internal/domain/ids"
	"github.com/Togather-Foundation/gallery/internal/domain/profiles"
	"github.com/Togather-Foundation/gallery/internal/media/mediatest"
)

const (
	userID  = "6f1c8a4e-2b3d-4c5e-8f90-1a2b3c4d5e6f"
	adminID = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type stubEvents struct {
	events []events.Event
	err    error
}

func (s stubEvents) List(ctx context.Context, page events.Pagination) (events.ListResult, error) {
	if s.err != nil {
		return events.ListResult{}, s.err
	}
	out := s.events
	if page.Limit > 0 && len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return events.ListResult{Events: out}, nil
}

func (s stubEvents) Get(ctx context.Context, id string) (*events.Event, error) {
	for _, e := range s.events {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, events.ErrNotFound
}

func (s stubEvents) Count(ctx context.Context) (int64, error) {
	return int64(len(s.events)), s.err
}

type fixture struct {
	repo  *gallerytest.Repository
	store *mediatest.Store
	jobs  *gallerytest.Enqueuer
	mux   *http.ServeMux
}

// newFixture wires the handlers onto a bare mux. Routes that need a caller
// read the profile set by withProfile.
func newFixture(t *testing.T, evts []events.Event) *fixture {
	t.Helper()
	f := &fixture{
		repo:  gallerytest.NewRepository(),
		store: mediatest.NewStore(),
		jobs:  &gallerytest.Enqueuer{},
		mux:   http.NewServeMux(),
	}
	f.repo.SetProfileName(userID, "Ada Lovelace")

	eventService := events.NewService(stubEvents{events: evts})
	view := gallery.NewGalleryService(f.repo, time.Second)
	submissions := gallery.NewSubmissionService(f.repo, f.store, f.jobs, gallery.SubmissionConfig{MaxBytes: 1024, StoreTimeout: time.Second}, zerolog.Nop())
	moderation := gallery.NewModerationService(f.repo, eventService, f.jobs, time.Second, zerolog.Nop())

	eventsHandler := NewEventsHandler(eventService, "test")
	galleryHandler := NewGalleryHandler(view, submissions, "test")
	moderationHandler := NewModerationHandler(moderation, nil, "test")

	f.mux.HandleFunc("GET /api/v1/events", eventsHandler.List)
	f.mux.HandleFunc("GET /api/v1/events/{id}", eventsHandler.Get)
	f.mux.HandleFunc("GET /api/v1/gallery", galleryHandler.List)
	f.mux.HandleFunc("POST /api/v1/gallery/submissions", galleryHandler.Submit)
	f.mux.HandleFunc("GET /api/v1/me", NewMeHandler("test").Get)
	f.mux.HandleFunc("GET /api/v1/admin/images", moderationHandler.List)
	f.mux.HandleFunc("POST /api/v1/admin/images/{id}/approve", moderationHandler.Approve)
	f.mux.HandleFunc("POST /api/v1/admin/images/{id}/reject", moderationHandler.Reject)
	f.mux.HandleFunc("DELETE /api/v1/admin/images/{id}", moderationHandler.Remove)
	f.mux.HandleFunc("GET /api/v1/admin/summary", moderationHandler.Summary)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seed(approved bool, createdAt time.Time) gallery.Image {
	img := gallery.Image{
		ID:          ids.NewUUID(),
		ImageURL:    "https://media.test/x.png",
		StorageKey:  "submissions/" + userID + "/" + ids.NewUUID() + ".png",
		SubmittedBy: userID,
		IsApproved:  approved,
		CreatedAt:   createdAt.UTC(),
	}
	if approved {
		at := createdAt.Add(time.Minute).UTC()
		img.ApprovedAt = &at
	}
	f.repo.Seed(img)
	return img
}

func withProfile(req *http.Request, id string, role auth.Role) *http.Request {
	profile := &profiles.Profile{ID: id, FullName: "Test Person", Role: role, CreatedAt: time.Now().UTC()}
	return req.WithContext(middleware.ContextWithProfile(req.Context(), profile))
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("caption", "ignored"))
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type problemBody struct {
	Type   string            `json:"type"`
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}
