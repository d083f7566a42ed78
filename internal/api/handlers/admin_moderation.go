package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Togather-Foundation/gallery/internal/api/middleware"
	"github.com/Togather-Foundation/gallery/internal/audit"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
)

const auditResource = "event_image"

type ModerationHandler struct {
	Service     *gallery.ModerationService
	AuditLogger *audit.Logger
	Env         string
}

func NewModerationHandler(service *gallery.ModerationService, auditLogger *audit.Logger, env string) *ModerationHandler {
	return &ModerationHandler{Service: service, AuditLogger: auditLogger, Env: env}
}

type moderationListResponse struct {
	Pending    []imageView `json:"pending"`
	Approved   []imageView `json:"approved"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// List returns one page of images split into pending and approved, each
// partition newest first.
func (h *ModerationHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := gallery.ParseListParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	result, err := h.Service.List(r.Context(), params)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	pending, approved := gallery.Partition(result.Images)
	writeJSON(w, http.StatusOK, moderationListResponse{
		Pending:    newImageViews(pending),
		Approved:   newImageViews(approved),
		NextCursor: result.NextCursor,
	})
}

func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	image, err := h.Service.Approve(r.Context(), id, actorID(r))
	if err != nil {
		h.auditFailure(r, "admin.image.approve", id, err)
		writeError(w, r, err, h.Env)
		return
	}

	h.AuditLogger.LogFromRequest(r, "admin.image.approve", auditResource, image.ID, audit.StatusSuccess, map[string]string{
		"submitted_by": image.SubmittedBy,
	})
	writeJSON(w, http.StatusOK, newImageView(*image))
}

// Reject deletes a pending image for good and requires confirm=true.
func (h *ModerationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		writeError(w, r, gallery.FilterError{Field: "confirm", Message: "rejecting deletes the image permanently; pass confirm=true"}, h.Env)
		return
	}

	image, err := h.Service.Reject(r.Context(), id, actorID(r))
	if err != nil {
		h.auditFailure(r, "admin.image.reject", id, err)
		writeError(w, r, err, h.Env)
		return
	}

	h.AuditLogger.LogFromRequest(r, "admin.image.reject", auditResource, image.ID, audit.StatusSuccess, map[string]string{
		"submitted_by": image.SubmittedBy,
		"storage_key":  image.StorageKey,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Remove takes down an image in any state.
func (h *ModerationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	image, err := h.Service.Remove(r.Context(), id, actorID(r))
	if err != nil {
		h.auditFailure(r, "admin.image.remove", id, err)
		writeError(w, r, err, h.Env)
		return
	}

	h.AuditLogger.LogFromRequest(r, "admin.image.remove", auditResource, image.ID, audit.StatusSuccess, map[string]string{
		"submitted_by": image.SubmittedBy,
		"was_approved": strconv.FormatBool(image.IsApproved),
	})
	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	TotalEvents    int64 `json:"total_events"`
	PendingImages  int64 `json:"pending_images"`
	ApprovedImages int64 `json:"approved_images"`
	TotalImages    int64 `json:"total_images"`
}

func (h *ModerationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context())
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse(summary))
}

func (h *ModerationHandler) auditFailure(r *http.Request, action, id string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, gallery.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, gallery.ErrNotPending):
		reason = "not_pending"
	}
	h.AuditLogger.LogFromRequest(r, action, auditResource, id, audit.StatusFailure, map[string]string{"reason": reason})
}

func actorID(r *http.Request) string {
	if profile := middleware.ProfileFromContext(r.Context()); profile != nil {
		return profile.ID
	}
	return ""
}
