package gallery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Togather-Foundation/gallery/internal/api/pagination"
	"github.com/Togather-Foundation/gallery/internal/domain/ids"
	"github.com/Togather-Foundation/gallery/internal/metrics"
)

const (
	DefaultModerationLimit = 50
	MaxModerationLimit     = 200
)

type ListParams struct {
	Status Status
	Pagination
}

// EventCounter reports the number of events for the dashboard summary.
type EventCounter interface {
	Count(ctx context.Context) (int64, error)
}

type Summary struct {
	TotalEvents    int64
	PendingImages  int64
	ApprovedImages int64
	TotalImages    int64
}

type ModerationService struct {
	repo    Repository
	events  EventCounter
	jobs    Enqueuer
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

func NewModerationService(repo Repository, events EventCounter, jobs Enqueuer, timeout time.Duration, logger zerolog.Logger) *ModerationService {
	if jobs == nil {
		jobs = NopEnqueuer{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ModerationService{
		repo:    repo,
		events:  events,
		jobs:    jobs,
		timeout: timeout,
		logger:  logger.With().Str("component", "moderation").Logger(),
		now:     time.Now,
	}
}

// List returns images with event title and submitter name, newest first.
func (s *ModerationService) List(ctx context.Context, params ListParams) (ListResult, error) {
	if params.Limit <= 0 || params.Limit > MaxModerationLimit {
		params.Limit = DefaultModerationLimit
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.List(ctx, Filter{Status: params.Status}, params.Pagination)
}

// Approve publishes a pending image. Approving an image that is already
// approved returns it unchanged.
func (s *ModerationService) Approve(ctx context.Context, id, adminID string) (*Image, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	image, err := s.repo.Approve(ctx, id, adminID, s.now().UTC())
	switch {
	case err == nil:
		metrics.ModerationActions.WithLabelValues("approve", "success").Inc()
		return image, nil
	case errors.Is(err, ErrNotPending):
		metrics.ModerationActions.WithLabelValues("approve", "noop").Inc()
		return s.repo.Get(ctx, id)
	case errors.Is(err, ErrNotFound):
		metrics.ModerationActions.WithLabelValues("approve", "not_found").Inc()
		return nil, err
	default:
		metrics.ModerationActions.WithLabelValues("approve", "error").Inc()
		return nil, fmt.Errorf("approve image %s: %w", id, err)
	}
}

// Reject permanently deletes a pending image. Approved images are left alone
// and ErrNotPending is returned; use Remove to take them down.
func (s *ModerationService) Reject(ctx context.Context, id, adminID string) (*Image, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	image, err := s.repo.DeletePending(ctx, id)
	if err != nil {
		metrics.ModerationActions.WithLabelValues("reject", resultLabel(err)).Inc()
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotPending) {
			return nil, err
		}
		return nil, fmt.Errorf("reject image %s: %w", id, err)
	}
	metrics.ModerationActions.WithLabelValues("reject", "success").Inc()
	s.releaseBlob(ctx, image, "rejected", adminID)
	return image, nil
}

// Remove deletes an image regardless of its moderation state.
func (s *ModerationService) Remove(ctx context.Context, id, adminID string) (*Image, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	image, err := s.repo.Delete(ctx, id)
	if err != nil {
		metrics.ModerationActions.WithLabelValues("remove", resultLabel(err)).Inc()
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("remove image %s: %w", id, err)
	}
	metrics.ModerationActions.WithLabelValues("remove", "success").Inc()
	s.releaseBlob(ctx, image, "removed", adminID)
	return image, nil
}

// Summary gathers the dashboard counters concurrently.
func (s *ModerationService) Summary(ctx context.Context) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var summary Summary
	var counts Counts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.events == nil {
			return nil
		}
		total, err := s.events.Count(gctx)
		if err != nil {
			return fmt.Errorf("count events: %w", err)
		}
		summary.TotalEvents = total
		return nil
	})
	g.Go(func() error {
		c, err := s.repo.Counts(gctx)
		if err != nil {
			return fmt.Errorf("count images: %w", err)
		}
		counts = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary.PendingImages = counts.Pending
	summary.ApprovedImages = counts.Approved
	summary.TotalImages = counts.Pending + counts.Approved
	return summary, nil
}

// releaseBlob queues deletion of the stored object once its record is gone.
// A failure here leaves an unreferenced object, never a broken record.
func (s *ModerationService) releaseBlob(ctx context.Context, image *Image, reason, adminID string) {
	if image == nil || image.StorageKey == "" {
		return
	}
	if err := s.jobs.EnqueueMediaCleanup(context.WithoutCancel(ctx), image.StorageKey, reason); err != nil {
		metrics.MediaCleanup.WithLabelValues("lost").Inc()
		s.logger.Error().Err(err).
			Str("image_id", image.ID).
			Str("storage_key", image.StorageKey).
			Str("admin_id", adminID).
			Msg("queue media cleanup failed")
	}
}

func normalizeID(id string) (string, error) {
	normalized, err := ids.NormalizeUUID(id)
	if err != nil {
		return "", ErrNotFound
	}
	return normalized, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotPending):
		return "not_pending"
	default:
		return "error"
	}
}

// ParseListParams reads status, limit and after for the moderation queue.
func ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{}

	switch status := strings.ToLower(strings.TrimSpace(values.Get("status"))); status {
	case "", "all":
	case string(StatusPending):
		params.Status = StatusPending
	case string(StatusApproved):
		params.Status = StatusApproved
	default:
		return params, FilterError{Field: "status", Message: "must be one of all, pending, approved"}
	}

	page, err := parsePagination(values, DefaultModerationLimit, MaxModerationLimit)
	if err != nil {
		return params, err
	}
	params.Pagination = page
	return params, nil
}

func parsePagination(values url.Values, fallback, max int) (Pagination, error) {
	page := Pagination{Limit: fallback}

	limit, err := pagination.ParseLimit(values.Get("limit"), fallback, max)
	if err != nil {
		return page, FilterError{Field: "limit", Message: err.Error()}
	}
	page.Limit = limit

	if after := strings.TrimSpace(values.Get("after")); after != "" {
		cursor, err := pagination.DecodeCursor(after)
		if err != nil {
			return page, FilterError{Field: "after", Message: "malformed cursor"}
		}
		page.After = &cursor
	}
	return page, nil
}
