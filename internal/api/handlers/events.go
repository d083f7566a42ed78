package handlers

import (
	"net/http"
	"strings"

	"github.com/Togather-Foundation/gallery/internal/domain/events"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type eventListResponse struct {
	Items      []eventView `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := events.ParsePagination(r.URL.Query())
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	result, err := h.Service.List(r.Context(), page)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	items := make([]eventView, 0, len(result.Events))
	for _, e := range result.Events {
		items = append(items, newEventView(e))
	}
	writeJSON(w, http.StatusOK, eventListResponse{Items: items, NextCursor: result.NextCursor})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.Service.Get(r.Context(), strings.TrimSpace(pathParam(r, "id")))
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, newEventView(*event))
}
