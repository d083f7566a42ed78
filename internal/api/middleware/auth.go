package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/gallery/internal/api/problem"
	"github.com/Togather-Foundation/gallery/internal/audit"
	"github.com/Togather-Foundation/gallery/internal/auth"
	"github.com/Togather-Foundation/gallery/internal/domain/profiles"
)

// ProfileLookup resolves a token subject to a profile.
type ProfileLookup interface {
	Get(ctx context.Context, id string) (*profiles.Profile, error)
}

type contextKeyAuth string

const profileKey contextKeyAuth = "profile"

// Authenticate requires a valid bearer token whose subject names an existing
// profile. The profile, with its current role, is stored on the context.
func Authenticate(manager *auth.JWTManager, lookup ProfileLookup, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil || lookup == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}

			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Missing bearer token", err, env)
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid token", err, env)
				return
			}

			profile, err := lookup.Get(r.Context(), claims.Subject)
			if errors.Is(err, profiles.ErrNotFound) {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unknown profile", err, env)
				return
			}
			if err != nil {
				problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
				return
			}

			ctx := context.WithValue(r.Context(), profileKey, profile)
			ctx = audit.WithActor(ctx, profile.ID)
			LoggerFromContext(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("profile_id", profile.ID)
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := ProfileFromContext(r.Context())
			if profile == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}
			if !profile.IsAdmin() {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient permissions", problem.ErrForbidden, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ProfileFromContext(ctx context.Context) *profiles.Profile {
	if profile, ok := ctx.Value(profileKey).(*profiles.Profile); ok {
		return profile
	}
	return nil
}

// ContextWithProfile is used by tests and by handlers composed outside Authenticate.
func ContextWithProfile(ctx context.Context, profile *profiles.Profile) context.Context {
	ctx = context.WithValue(ctx, profileKey, profile)
	return audit.WithActor(ctx, profile.ID)
}
