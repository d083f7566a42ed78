package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
	"github.com/Togather-Foundation/gallery/internal/domain/ids"
)

func createImage(t *testing.T, ctx context.Context, repo *ImageRepository, submitter string) *gallery.Image {
	t.Helper()
	key := "submissions/" + submitter + "/" + ids.NewUUID() + ".png"
	img, err := repo.Create(ctx, gallery.CreateParams{
		ImageURL:    "https://media.test/" + key,
		StorageKey:  key,
		SubmittedBy: submitter,
	})
	require.NoError(t, err)
	return img
}

func TestImageRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &ImageRepository{db: pool}

	submitter := insertProfile(t, ctx, pool, "Ada Lovelace", "user")
	created := createImage(t, ctx, repo, submitter)

	assert.False(t, created.IsApproved)
	assert.Nil(t, created.EventID)
	assert.Nil(t, created.ApprovedAt)
	assert.Equal(t, submitter, created.SubmittedBy)
	assert.Equal(t, "Ada Lovelace", created.SubmitterName)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.StorageKey, got.StorageKey)

	_, err = repo.Get(ctx, ids.NewUUID())
	assert.ErrorIs(t, err, gallery.ErrNotFound)
}

func TestImageRepository_CreateUnknownSubmitter(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &ImageRepository{db: pool}

	_, err := repo.Create(ctx, gallery.CreateParams{
		ImageURL:    "https://media.test/x.png",
		StorageKey:  "submissions/x/x.png",
		SubmittedBy: ids.NewUUID(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown submitter")
}

func TestImageRepository_ListJoinsEventTitle(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &ImageRepository{db: pool}

	submitter := insertProfile(t, ctx, pool, "Grace", "user")
	eventID := insertEvent(t, ctx, pool, "Spring Fair", time.Now().Add(24*time.Hour))
	img := createImage(t, ctx, repo, submitter)
	_, err := pool.Exec(ctx, `UPDATE event_images SET event_id = $2 WHERE id = $1`, img.ID, eventID)
	require.NoError(t, err)

	result, err := repo.List(ctx, gallery.Filter{}, gallery.Pagination{Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Images, 1)
	assert.Equal(t, "Spring Fair", result.Images[0].EventTitle)
	assert.Equal(t, "Grace", result.Images[0].SubmitterName)
	require.NotNil(t, result.Images[0].EventID)
	assert.Equal(t, eventID, *result.Images[0].EventID)
}

func TestImageRepository_ApproveIsConditional(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &ImageRepository{db: pool}

	submitter := insertProfile(t, ctx, pool, "User", "user")
	admin := insertProfile(t, ctx, pool, "Admin", "admin")
	img := createImage(t, ctx, repo, submitter)

	// An approval time before creation is clamped to the creation time.
	approved, err := repo.Approve(ctx, img.ID, admin, img.CreatedAt.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	require.NotNil(t, approved.ApprovedAt)
	assert.False(t, approved.ApprovedAt.Before(approved.CreatedAt))
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, admin, *approved.ApprovedBy)

	_, err = repo.Approve(ctx, img.ID, admin, time.Now())
	assert.ErrorIs(t, err, gallery.ErrNotPending)

	again, err := repo.Get(ctx, img.ID)
	require.NoError(t, err)
	assert.True(t, approved.ApprovedAt.Equal(*again.ApprovedAt), "approved_at unchanged")

	_, err = repo.Approve(ctx, ids.NewUUID(), admin, time.Now())
	assert.ErrorIs(t, err, gallery.ErrNotFound)
}

func TestImageRepository_ApprovalConsistencyConstraint(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &ImageRepository{db: pool}

	submitter := insertProfile(t, ctx, pool, "User", "user")
	img := createImage(t, ctx, repo, submitter)

	_, err := pool.Exec(ctx, `UPDATE event_images SET is_approved = true WHERE id = $1`, img.ID)
	require.Error(t, err, "approved rows must carry approved_at")
}

func TestImageRepository_DeletePending(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &ImageRepository{db: pool}

	submitter := insertProfile(t, ctx, pool, "User", "user")
	pending := createImage(t, ctx, repo, submitter)
	published := createImage(t, ctx, repo, submitter)
	_, err := repo.Approve(ctx, published.ID, "", time.Now())
	require.NoError(t, err)

	deleted, err := repo.DeletePending(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.StorageKey, deleted.StorageKey)

	_, err = repo.Get(ctx, pending.ID)
	assert.ErrorIs(t, err, gallery.ErrNotFound)

	_, err = repo.DeletePending(ctx, pending.ID)
	assert.ErrorIs(t, err, gallery.ErrNotFound)

	_, err = repo.DeletePending(ctx, published.ID)
	assert.ErrorIs(t, err, gallery.ErrNotPending)

	removed, err := repo.Delete(ctx, published.ID)
	require.NoError(t, err)
	assert.True(t, removed.IsApproved)

	_, err = repo.Delete(ctx, published.ID)
	assert.ErrorIs(t, err, gallery.ErrNotFound)
}

func TestImageRepository_ListOrderingFilterAndCursor(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &ImageRepository{db: pool}

	submitter := insertProfile(t, ctx, pool, "User", "user")
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var approvedCount int
	for i := 0; i < 7; i++ {
		img := createImage(t, ctx, repo, submitter)
		// Two images share a timestamp to exercise the id tie breaker.
		setImageCreatedAt(t, ctx, pool, img.ID, base.Add(time.Duration(i/2)*time.Minute))
		if i%2 == 0 {
			_, err := repo.Approve(ctx, img.ID, "", base.Add(time.Hour))
			require.NoError(t, err)
			approvedCount++
		}
	}

	var all []gallery.Image
	page := gallery.Pagination{Limit: 3}
	for {
		result, err := repo.List(ctx, gallery.Filter{}, page)
		require.NoError(t, err)
		all = append(all, result.Images...)
		if result.NextCursor == "" {
			break
		}
		cursor, err := decodeForTest(result.NextCursor)
		require.NoError(t, err)
		page.After = &cursor
	}
	require.Len(t, all, 7)
	seen := map[string]bool{}
	for i, img := range all {
		assert.False(t, seen[img.ID], "duplicate across pages")
		seen[img.ID] = true
		if i > 0 {
			assert.False(t, img.CreatedAt.After(all[i-1].CreatedAt), "non-increasing created_at")
		}
	}

	approved, err := repo.List(ctx, gallery.Filter{Status: gallery.StatusApproved}, gallery.Pagination{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, approved.Images, approvedCount)
	for _, img := range approved.Images {
		assert.True(t, img.IsApproved)
	}

	pending, err := repo.List(ctx, gallery.Filter{Status: gallery.StatusPending}, gallery.Pagination{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, pending.Images, 7-approvedCount)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, gallery.Counts{Pending: int64(7 - approvedCount), Approved: int64(approvedCount)}, counts)
}

func TestImageRepository_ConcurrentApproveAndReject(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &ImageRepository{db: pool}

	submitter := insertProfile(t, ctx, pool, "User", "user")
	img := createImage(t, ctx, repo, submitter)

	var wg sync.WaitGroup
	var approveErr, rejectErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = repo.Approve(ctx, img.ID, "", time.Now())
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = repo.DeletePending(ctx, img.ID)
	}()
	wg.Wait()

	// Exactly one side wins; the loser sees the winner's outcome.
	if approveErr == nil {
		assert.ErrorIs(t, rejectErr, gallery.ErrNotPending)
		got, err := repo.Get(ctx, img.ID)
		require.NoError(t, err)
		assert.True(t, got.IsApproved)
	} else {
		assert.ErrorIs(t, approveErr, gallery.ErrNotFound)
		assert.NoError(t, rejectErr)
	}
}
