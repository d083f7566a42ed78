package storage

import (
	"context"

	"github.com/Togather-Foundation/gallery/internal/domain/events"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
	"github.com/Togather-Foundation/gallery/internal/domain/profiles"
)

// Repository groups data access by domain.
type Repository interface {
	Events() events.Repository
	Images() gallery.Repository
	Profiles() profiles.Repository
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (version uint, dirty bool, err error)
}
