package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/gallery/internal/api/middleware"
	"github.com/Togather-Foundation/gallery/internal/api/problem"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
)

// uploadField is the multipart form field carrying the image.
const uploadField = "image"

type GalleryHandler struct {
	Gallery     *gallery.GalleryService
	Submissions *gallery.SubmissionService
	Env         string
}

func NewGalleryHandler(view *gallery.GalleryService, submissions *gallery.SubmissionService, env string) *GalleryHandler {
	return &GalleryHandler{Gallery: view, Submissions: submissions, Env: env}
}

type galleryResponse struct {
	Items      []publicImageView `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := gallery.ParseGalleryPagination(r.URL.Query())
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	result, err := h.Gallery.ListApproved(r.Context(), page)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	items := make([]publicImageView, 0, len(result.Images))
	for _, img := range result.Images {
		items = append(items, newPublicImageView(img))
	}
	writeJSON(w, http.StatusOK, galleryResponse{Items: items, NextCursor: result.NextCursor})
}

type submissionResponse struct {
	Image   imageView `json:"image"`
	Message string    `json:"message"`
}

// Submit streams the multipart "image" part straight into the submission
// service; the file never touches local disk.
func (h *GalleryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())
	if profile == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, h.Env)
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		problem.Write(w, r, http.StatusUnsupportedMediaType, problem.TypeValidation, "Expected multipart/form-data", err, h.Env)
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, r, gallery.FilterError{Field: uploadField, Message: "malformed multipart body"}, h.Env)
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				writeError(w, r, err, h.Env)
				return
			}
			writeError(w, r, gallery.FilterError{Field: uploadField, Message: "malformed multipart body"}, h.Env)
			return
		}
		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}

		image, err := h.Submissions.Submit(r.Context(), gallery.SubmitParams{
			SubmittedBy: profile.ID,
			Filename:    strings.TrimSpace(part.FileName()),
			Content:     part,
		})
		_ = part.Close()
		if err != nil {
			writeError(w, r, err, h.Env)
			return
		}

		writeJSON(w, http.StatusCreated, submissionResponse{
			Image:   newImageView(*image),
			Message: "Thanks! Your photo will appear in the gallery once a moderator approves it.",
		})
		return
	}

	writeError(w, r, gallery.ErrMissingFile, h.Env)
}
