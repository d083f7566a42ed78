// Package gallerytest provides in-memory fakes of the gallery collaborators.
package gallerytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Togather-Foundation/gallery/internal/api/pagination"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
	"github.com/Togather-Foundation/gallery/internal/domain/ids"
)

// Repository mirrors the semantics of the Postgres repository, including
// the conditional approve and reject.
type Repository struct {
	mu     sync.Mutex
	images map[string]gallery.Image
	names  map[string]string
	now    func() time.Time

	// CreateErr, when set, fails Create.
	CreateErr error
}

var _ gallery.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		images: map[string]gallery.Image{},
		names:  map[string]string{},
		now:    time.Now,
	}
}

// SetProfileName registers a submitter display name used in listings.
func (r *Repository) SetProfileName(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[id] = name
}

// Seed inserts an image as is.
func (r *Repository) Seed(img gallery.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[img.ID] = img
}

func (r *Repository) Create(ctx context.Context, params gallery.CreateParams) (*gallery.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	img := gallery.Image{
		ID:            ids.NewUUID(),
		ImageURL:      params.ImageURL,
		StorageKey:    params.StorageKey,
		EventID:       params.EventID,
		SubmittedBy:   params.SubmittedBy,
		SubmitterName: r.names[params.SubmittedBy],
		CreatedAt:     r.now().UTC(),
	}
	r.images[img.ID] = img
	return &img, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*gallery.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return nil, gallery.ErrNotFound
	}
	return &img, nil
}

func (r *Repository) List(ctx context.Context, filter gallery.Filter, page gallery.Pagination) (gallery.ListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]gallery.Image, 0, len(r.images))
	for _, img := range r.images {
		if filter.Status != "" && img.Status() != filter.Status {
			continue
		}
		if page.After != nil && !before(img, *page.After) {
			continue
		}
		all = append(all, img)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	limit := page.Limit
	if limit <= 0 {
		limit = len(all)
	}
	result := gallery.ListResult{}
	if len(all) > limit {
		last := all[limit-1]
		result.NextCursor = pagination.EncodeCursor(last.CreatedAt, last.ID)
		all = all[:limit]
	}
	result.Images = all
	return result, nil
}

// before reports whether img sorts after the cursor in descending order.
func before(img gallery.Image, c pagination.Cursor) bool {
	if img.CreatedAt.Equal(c.Timestamp) {
		return img.ID < c.ID
	}
	return img.CreatedAt.Before(c.Timestamp)
}

func (r *Repository) Approve(ctx context.Context, id, approvedBy string, at time.Time) (*gallery.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return nil, gallery.ErrNotFound
	}
	if img.IsApproved {
		return nil, gallery.ErrNotPending
	}
	img.IsApproved = true
	img.ApprovedAt = &at
	img.ApprovedBy = &approvedBy
	r.images[id] = img
	return &img, nil
}

func (r *Repository) DeletePending(ctx context.Context, id string) (*gallery.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return nil, gallery.ErrNotFound
	}
	if img.IsApproved {
		return nil, gallery.ErrNotPending
	}
	delete(r.images, id)
	return &img, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (*gallery.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return nil, gallery.ErrNotFound
	}
	delete(r.images, id)
	return &img, nil
}

func (r *Repository) Counts(ctx context.Context) (gallery.Counts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c gallery.Counts
	for _, img := range r.images {
		if img.IsApproved {
			c.Approved++
		} else {
			c.Pending++
		}
	}
	return c, nil
}

// Enqueuer records jobs instead of running them.
type Enqueuer struct {
	mu       sync.Mutex
	Cleanups []string
	Notices  []string

	CleanupErr error
	NoticeErr  error
}

var _ gallery.Enqueuer = (*Enqueuer)(nil)

func (e *Enqueuer) EnqueueMediaCleanup(ctx context.Context, storageKey, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.CleanupErr != nil {
		return e.CleanupErr
	}
	e.Cleanups = append(e.Cleanups, storageKey)
	return nil
}

func (e *Enqueuer) EnqueueSubmissionNotice(ctx context.Context, imageID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.NoticeErr != nil {
		return e.NoticeErr
	}
	e.Notices = append(e.Notices, imageID)
	return nil
}
