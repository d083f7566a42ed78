package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/gallery/internal/domain/ids"
	"github.com/Togather-Foundation/gallery/internal/media"
	"github.com/Togather-Foundation/gallery/internal/metrics"
)

const DefaultMaxBytes int64 = 10 << 20

type SubmitParams struct {
	SubmittedBy string
	Filename    string
	Content     io.Reader
}

type SubmissionConfig struct {
	MaxBytes     int64
	StoreTimeout time.Duration
}

type SubmissionService struct {
	repo   Repository
	store  media.Store
	jobs   Enqueuer
	cfg    SubmissionConfig
	logger zerolog.Logger
	now    func() time.Time
}

func NewSubmissionService(repo Repository, store media.Store, jobs Enqueuer, cfg SubmissionConfig, logger zerolog.Logger) *SubmissionService {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 10 * time.Second
	}
	if jobs == nil {
		jobs = NopEnqueuer{}
	}
	return &SubmissionService{
		repo:   repo,
		store:  store,
		jobs:   jobs,
		cfg:    cfg,
		logger: logger.With().Str("component", "submission").Logger(),
		now:    time.Now,
	}
}

// MaxBytes is the largest accepted image.
func (s *SubmissionService) MaxBytes() int64 {
	return s.cfg.MaxBytes
}

// Submit stores the image and records it as pending moderation. If the
// record cannot be written the stored object is removed again, or queued for
// removal when that fails too.
func (s *SubmissionService) Submit(ctx context.Context, params SubmitParams) (*Image, error) {
	submitter, err := ids.NormalizeUUID(params.SubmittedBy)
	if err != nil {
		return nil, FilterError{Field: "submitted_by", Message: "must be a valid UUID"}
	}
	if params.Content == nil {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return nil, ErrMissingFile
	}

	data, err := io.ReadAll(io.LimitReader(params.Content, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return nil, ErrMissingFile
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		metrics.Submissions.WithLabelValues("too_large").Inc()
		return nil, ErrTooLarge
	}

	contentType, ext, ok := media.DetectImage(data)
	if !ok {
		metrics.Submissions.WithLabelValues("unsupported").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key, err := media.NewKey(submitter, ext, s.now())
	if err != nil {
		return nil, fmt.Errorf("generate storage key: %w", err)
	}

	url, err := s.put(ctx, key, contentType, data)
	if err != nil {
		metrics.Submissions.WithLabelValues("error").Inc()
		return nil, err
	}

	image, err := s.create(ctx, CreateParams{
		ImageURL:    url,
		StorageKey:  key,
		SubmittedBy: submitter,
	})
	if err != nil {
		metrics.Submissions.WithLabelValues("error").Inc()
		s.compensate(ctx, key)
		return nil, fmt.Errorf("record submission: %w", err)
	}

	metrics.Submissions.WithLabelValues("accepted").Inc()
	s.logger.Info().
		Str("image_id", image.ID).
		Str("submitted_by", submitter).
		Str("content_type", contentType).
		Int("bytes", len(data)).
		Str("filename", params.Filename).
		Msg("image submitted")

	if err := s.jobs.EnqueueSubmissionNotice(ctx, image.ID); err != nil {
		s.logger.Warn().Err(err).Str("image_id", image.ID).Msg("enqueue submission notice failed")
	}
	return image, nil
}

func (s *SubmissionService) put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return url, nil
}

func (s *SubmissionService) create(ctx context.Context, params CreateParams) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.repo.Create(ctx, params)
}

// compensate runs detached from the request so a client disconnect does not
// leave the object behind.
func (s *SubmissionService) compensate(ctx context.Context, key string) {
	ctx = context.WithoutCancel(ctx)
	deleteCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	err := s.store.Delete(deleteCtx, key)
	if err == nil {
		metrics.MediaCleanup.WithLabelValues("compensated").Inc()
		return
	}
	s.logger.Warn().Err(err).Str("storage_key", key).Msg("delete orphaned upload failed, queueing cleanup")

	if qerr := s.jobs.EnqueueMediaCleanup(ctx, key, "orphaned_upload"); qerr != nil {
		metrics.MediaCleanup.WithLabelValues("lost").Inc()
		s.logger.Error().Err(errors.Join(err, qerr)).Str("storage_key", key).Msg("orphaned upload left in storage")
	}
}
