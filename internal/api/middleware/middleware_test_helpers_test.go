package middleware

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/gallery/internal/auth"
	"github.com/Togather-Foundation/gallery/internal/domain/profiles"
)

const (
	userID  = "6f1c8a4e-2b3d-4c5e-8f90-1a2b3c4d5e6f"
	adminID = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
)

type fakeProfiles map[string]*profiles.Profile

func (f fakeProfiles) Get(_ context.Context, id string) (*profiles.Profile, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, profiles.ErrNotFound
}

func testProfiles() fakeProfiles {
	return fakeProfiles{
		userID:  {ID: userID, FullName: "User", Role: auth.RoleUser},
		adminID: {ID: adminID, FullName: "Admin", Role: auth.RoleAdmin},
	}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})
