package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/gallery/internal/api/pagination"
	"github.com/Togather-Foundation/gallery/internal/api/problem"
	"github.com/Togather-Foundation/gallery/internal/domain/events"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}

// writeError maps domain errors onto problem responses. Anything it does not
// recognise is a 500 whose detail is hidden outside development.
func writeError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var (
		galleryFilter gallery.FilterError
		eventsFilter  events.FilterError
		maxBytes      *http.MaxBytesError
	)
	switch {
	case errors.Is(err, gallery.ErrNotFound), errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env)
	case errors.Is(err, gallery.ErrNotPending):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Image is not pending", err, env,
			problem.WithDetail("the image has already been approved; remove it instead"))
	case errors.Is(err, gallery.ErrTooLarge), errors.As(err, &maxBytes):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypePayloadTooLarge, "Image too large", err, env)
	case errors.Is(err, gallery.ErrMissingFile):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithFieldError("image", "an image file is required"))
	case errors.Is(err, gallery.ErrUnsupportedType):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithFieldError("image", "must be a JPEG, PNG, GIF or WebP image"))
	case errors.As(err, &galleryFilter):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithFieldError(galleryFilter.Field, galleryFilter.Message))
	case errors.As(err, &eventsFilter):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithFieldError(eventsFilter.Field, eventsFilter.Message))
	case errors.Is(err, pagination.ErrInvalidCursor):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithFieldError("after", "invalid cursor"))
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
	}
}
