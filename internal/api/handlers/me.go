package handlers

import (
	"net/http"

	"github.com/Togather-Foundation/gallery/internal/api/middleware"
	"github.com/Togather-Foundation/gallery/internal/api/problem"
)

type MeHandler struct {
	Env string
}

func NewMeHandler(env string) *MeHandler {
	return &MeHandler{Env: env}
}

func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r.Context())
	if profile == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(*profile))
}
