package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/riverqueue/river"

	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
	"github.com/Togather-Foundation/gallery/internal/email"
	"github.com/Togather-Foundation/gallery/internal/media"
	"github.com/Togather-Foundation/gallery/internal/metrics"
)

// MediaCleanupArgs removes a stored object whose image record is gone.
type MediaCleanupArgs struct {
	StorageKey string `json:"storage_key" river:"unique"`
	Reason     string `json:"reason"`
}

func (MediaCleanupArgs) Kind() string { return JobKindMediaCleanup }

// SubmissionNoticeArgs emails moderators about a new pending image.
type SubmissionNoticeArgs struct {
	ImageID string `json:"image_id" river:"unique"`
}

func (SubmissionNoticeArgs) Kind() string { return JobKindSubmissionNotice }

type MediaCleanupWorker struct {
	river.WorkerDefaults[MediaCleanupArgs]
	Store media.Store
	// StoreTimeout bounds each attempt. Zero keeps the client default.
	StoreTimeout time.Duration
	Logger       *slog.Logger
}

func (MediaCleanupWorker) Kind() string { return JobKindMediaCleanup }

func (w MediaCleanupWorker) Timeout(*river.Job[MediaCleanupArgs]) time.Duration {
	return w.StoreTimeout
}

func (w MediaCleanupWorker) Work(ctx context.Context, job *river.Job[MediaCleanupArgs]) error {
	if w.Store == nil {
		return fmt.Errorf("media store not configured")
	}
	if job == nil {
		return fmt.Errorf("media cleanup job missing")
	}
	key := job.Args.StorageKey
	if err := media.ValidateKey(key); err != nil {
		// Retrying cannot fix a bad key.
		return river.JobCancel(fmt.Errorf("media cleanup %q: %w", key, err))
	}

	if err := w.Store.Delete(ctx, key); err != nil {
		metrics.MediaCleanup.WithLabelValues("failed").Inc()
		return fmt.Errorf("delete %s: %w", key, err)
	}

	metrics.MediaCleanup.WithLabelValues("deleted").Inc()
	logger(w.Logger).Info("media object deleted", "storage_key", key, "reason", job.Args.Reason, "attempt", job.Attempt)
	return nil
}

// ImageGetter is the slice of the image repository the notice worker reads.
type ImageGetter interface {
	Get(ctx context.Context, id string) (*gallery.Image, error)
}

// Notifier sends the moderator email.
type Notifier interface {
	SendSubmissionNotice(ctx context.Context, notice email.SubmissionNotice) error
}

type SubmissionNoticeWorker struct {
	river.WorkerDefaults[SubmissionNoticeArgs]
	Images   ImageGetter
	Notifier Notifier
	// ReviewURL is where the email links moderators to.
	ReviewURL string
	Logger    *slog.Logger
}

func (SubmissionNoticeWorker) Kind() string { return JobKindSubmissionNotice }

func (w SubmissionNoticeWorker) Work(ctx context.Context, job *river.Job[SubmissionNoticeArgs]) error {
	if w.Images == nil || w.Notifier == nil {
		return fmt.Errorf("submission notice worker not configured")
	}
	if job == nil {
		return fmt.Errorf("submission notice job missing")
	}

	image, err := w.Images.Get(ctx, job.Args.ImageID)
	if errors.Is(err, gallery.ErrNotFound) {
		metrics.NotificationsSent.WithLabelValues("skipped").Inc()
		logger(w.Logger).Info("image gone before notice was sent", "image_id", job.Args.ImageID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load image %s: %w", job.Args.ImageID, err)
	}
	if image.IsApproved {
		metrics.NotificationsSent.WithLabelValues("skipped").Inc()
		return nil
	}

	err = w.Notifier.SendSubmissionNotice(ctx, email.SubmissionNotice{
		ImageID:       image.ID,
		ImageURL:      image.ImageURL,
		SubmitterName: image.SubmitterName,
		SubmittedAt:   image.CreatedAt,
		ReviewURL:     w.ReviewURL,
	})
	switch {
	case errors.Is(err, email.ErrDisabled):
		metrics.NotificationsSent.WithLabelValues("skipped").Inc()
		return nil
	case err != nil:
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("send submission notice: %w", err)
	}
	metrics.NotificationsSent.WithLabelValues("sent").Inc()
	return nil
}

// WorkerDeps are the collaborators the workers need.
type WorkerDeps struct {
	Store        media.Store
	StoreTimeout time.Duration
	Images       ImageGetter
	Notifier     Notifier
	BaseURL      string
	Logger       *slog.Logger
}

func NewWorkers(deps WorkerDeps) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[MediaCleanupArgs](workers, MediaCleanupWorker{
		Store:        deps.Store,
		StoreTimeout: deps.StoreTimeout,
		Logger:       deps.Logger,
	})
	river.AddWorker[SubmissionNoticeArgs](workers, SubmissionNoticeWorker{
		Images:    deps.Images,
		Notifier:  deps.Notifier,
		ReviewURL: strings.TrimRight(deps.BaseURL, "/") + "/admin/moderation",
		Logger:    deps.Logger,
	})
	return workers
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
