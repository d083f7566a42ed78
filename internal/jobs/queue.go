package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
)

// Inserter is the part of the River client the queue uses.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Queue enqueues gallery background work onto River.
type Queue struct {
	client Inserter
	policy *RetryPolicy
	// notices is false when no email transport is configured.
	notices bool
}

var _ gallery.Enqueuer = (*Queue)(nil)

func NewQueue(client Inserter, cleanupAttempts int, notices bool) *Queue {
	return &Queue{client: client, policy: NewRetryPolicy(cleanupAttempts), notices: notices}
}

func (q *Queue) EnqueueMediaCleanup(ctx context.Context, storageKey, reason string) error {
	opts := q.policy.InsertOpts(JobKindMediaCleanup)
	opts.UniqueOpts = river.UniqueOpts{ByArgs: true}
	if _, err := q.client.Insert(ctx, MediaCleanupArgs{StorageKey: storageKey, Reason: reason}, opts); err != nil {
		return fmt.Errorf("enqueue media cleanup: %w", err)
	}
	return nil
}

func (q *Queue) EnqueueSubmissionNotice(ctx context.Context, imageID string) error {
	if !q.notices {
		return nil
	}
	opts := q.policy.InsertOpts(JobKindSubmissionNotice)
	opts.UniqueOpts = river.UniqueOpts{ByArgs: true}
	if _, err := q.client.Insert(ctx, SubmissionNoticeArgs{ImageID: imageID}, opts); err != nil {
		return fmt.Errorf("enqueue submission notice: %w", err)
	}
	return nil
}
