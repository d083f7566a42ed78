package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
	"github.com/Togather-Foundation/gallery/internal/email"
	"github.com/Togather-Foundation/gallery/internal/media/mediatest"
)

func cleanupJob(key string) *river.Job[MediaCleanupArgs] {
	return &river.Job[MediaCleanupArgs]{
		JobRow: &rivertype.JobRow{Kind: JobKindMediaCleanup, Attempt: 1},
		Args:   MediaCleanupArgs{StorageKey: key, Reason: "rejected"},
	}
}

func noticeJob(id string) *river.Job[SubmissionNoticeArgs] {
	return &river.Job[SubmissionNoticeArgs]{
		JobRow: &rivertype.JobRow{Kind: JobKindSubmissionNotice, Attempt: 1},
		Args:   SubmissionNoticeArgs{ImageID: id},
	}
}

func TestMediaCleanupWorker_DeletesObject(t *testing.T) {
	store := mediatest.NewStore()
	_, err := store.Put(context.Background(), "submissions/u/a.png", "image/png", []byte("x"))
	require.NoError(t, err)

	w := MediaCleanupWorker{Store: store, StoreTimeout: time.Second}
	require.NoError(t, w.Work(context.Background(), cleanupJob("submissions/u/a.png")))
	assert.False(t, store.Has("submissions/u/a.png"))

	// Deleting again is fine; the object is already gone.
	require.NoError(t, w.Work(context.Background(), cleanupJob("submissions/u/a.png")))
}

func TestMediaCleanupWorker_TimeoutFollowsStoreTimeout(t *testing.T) {
	var _ river.Worker[MediaCleanupArgs] = MediaCleanupWorker{}

	job := cleanupJob("submissions/u/a.png")
	assert.Equal(t, 3*time.Second, MediaCleanupWorker{StoreTimeout: 3 * time.Second}.Timeout(job))
	assert.Zero(t, MediaCleanupWorker{}.Timeout(job))
}

func TestMediaCleanupWorker_StoreFailureRetries(t *testing.T) {
	store := mediatest.NewStore()
	store.DeleteErr = errors.New("bucket unavailable")

	err := MediaCleanupWorker{Store: store}.Work(context.Background(), cleanupJob("submissions/u/a.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
}

func TestMediaCleanupWorker_InvalidKeyIsCancelled(t *testing.T) {
	err := MediaCleanupWorker{Store: mediatest.NewStore()}.Work(context.Background(), cleanupJob("../etc/passwd"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "../etc/passwd")
}

func TestMediaCleanupWorker_NotConfigured(t *testing.T) {
	assert.Error(t, MediaCleanupWorker{}.Work(context.Background(), cleanupJob("k")))
	assert.Error(t, MediaCleanupWorker{Store: mediatest.NewStore()}.Work(context.Background(), nil))
}

type fakeImages map[string]*gallery.Image

func (f fakeImages) Get(_ context.Context, id string) (*gallery.Image, error) {
	if img, ok := f[id]; ok {
		return img, nil
	}
	return nil, gallery.ErrNotFound
}

type fakeNotifier struct {
	sent []email.SubmissionNotice
	err  error
}

func (f *fakeNotifier) SendSubmissionNotice(_ context.Context, n email.SubmissionNotice) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func TestSubmissionNoticeWorker_SendsForPendingImage(t *testing.T) {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	images := fakeImages{"img-1": {ID: "img-1", ImageURL: "https://media.test/a.png", SubmitterName: "Ada", CreatedAt: created}}
	notifier := &fakeNotifier{}

	w := SubmissionNoticeWorker{Images: images, Notifier: notifier, ReviewURL: "https://gallery.test/admin/moderation"}
	require.NoError(t, w.Work(context.Background(), noticeJob("img-1")))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, email.SubmissionNotice{
		ImageID:       "img-1",
		ImageURL:      "https://media.test/a.png",
		SubmitterName: "Ada",
		SubmittedAt:   created,
		ReviewURL:     "https://gallery.test/admin/moderation",
	}, notifier.sent[0])
}

func TestSubmissionNoticeWorker_SkipsModeratedImages(t *testing.T) {
	at := time.Now()
	images := fakeImages{"approved": {ID: "approved", IsApproved: true, ApprovedAt: &at}}
	notifier := &fakeNotifier{}
	w := SubmissionNoticeWorker{Images: images, Notifier: notifier}

	require.NoError(t, w.Work(context.Background(), noticeJob("approved")))
	require.NoError(t, w.Work(context.Background(), noticeJob("rejected-already")))
	assert.Empty(t, notifier.sent)
}

func TestSubmissionNoticeWorker_Errors(t *testing.T) {
	images := fakeImages{"img-1": {ID: "img-1"}}

	err := SubmissionNoticeWorker{Images: images, Notifier: &fakeNotifier{err: errors.New("resend down")}}.
		Work(context.Background(), noticeJob("img-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resend down")

	err = SubmissionNoticeWorker{Images: images, Notifier: &fakeNotifier{err: email.ErrDisabled}}.
		Work(context.Background(), noticeJob("img-1"))
	assert.NoError(t, err, "disabled email is not retried")

	assert.Error(t, SubmissionNoticeWorker{}.Work(context.Background(), noticeJob("img-1")))
}

func TestNewWorkers(t *testing.T) {
	workers := NewWorkers(WorkerDeps{Store: mediatest.NewStore(), BaseURL: "https://gallery.test/"})
	assert.NotNil(t, workers)
}
