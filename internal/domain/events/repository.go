package events

import (
	"context"
	"errors"
	"time"

	"github.com/Togather-Foundation/gallery/internal/api/pagination"
)

var ErrNotFound = errors.New("event not found")

type Event struct {
	ID          string
	Title       string
	Description string
	EventDate   time.Time
	Location    string
	ImageURL    string
	CreatedAt   time.Time
}

type Pagination struct {
	Limit int
	After *pagination.Cursor
}

type ListResult struct {
	Events     []Event
	NextCursor string
}

// Repository is read-only; events are seeded by operators.
type Repository interface {
	List(ctx context.Context, page Pagination) (ListResult, error)
	Get(ctx context.Context, id string) (*Event, error)
	Count(ctx context.Context) (int64, error)
}
