package gallery

import (
	"context"
	"time"

	"github.com/Togather-Foundation/gallery/internal/api/pagination"
)

type CreateParams struct {
	ImageURL    string
	StorageKey  string
	EventID     *string
	SubmittedBy string
}

// Filter narrows a listing by moderation state. The zero value lists all.
type Filter struct {
	Status Status
}

type Pagination struct {
	Limit int
	After *pagination.Cursor
}

type ListResult struct {
	Images     []Image
	NextCursor string
}

type Counts struct {
	Pending  int64
	Approved int64
}

// Repository persists images. Listings are ordered created_at DESC, id DESC.
//
// Approve and DeletePending are conditional on the image still being pending.
// When nothing matched they report ErrNotFound if the id does not exist and
// ErrNotPending if it exists but is already approved.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Image, error)
	Get(ctx context.Context, id string) (*Image, error)
	List(ctx context.Context, filter Filter, page Pagination) (ListResult, error)
	Approve(ctx context.Context, id, approvedBy string, at time.Time) (*Image, error)
	DeletePending(ctx context.Context, id string) (*Image, error)
	Delete(ctx context.Context, id string) (*Image, error)
	Counts(ctx context.Context) (Counts, error)
}

// Enqueuer hands off work that must outlive the request.
type Enqueuer interface {
	EnqueueMediaCleanup(ctx context.Context, storageKey, reason string) error
	EnqueueSubmissionNotice(ctx context.Context, imageID string) error
}

// NopEnqueuer drops all jobs. Used when background jobs are disabled.
type NopEnqueuer struct{}

func (NopEnqueuer) EnqueueMediaCleanup(context.Context, string, string) error { return nil }
func (NopEnqueuer) EnqueueSubmissionNotice(context.Context, string) error     { return nil }
