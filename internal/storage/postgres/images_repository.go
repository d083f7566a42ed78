package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Togather-Foundation/gallery/internal/api/pagination"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
)

type ImageRepository struct {
	db queryer
}

var _ gallery.Repository = (*ImageRepository)(nil)

// imageSelect reads from a relation named i so the same projection serves
// plain selects and data modifying CTEs.
const imageSelect = `
SELECT i.id, i.image_url, i.storage_key, i.event_id, COALESCE(e.title, ''),
       i.submitted_by, COALESCE(p.full_name, ''), i.is_approved,
       i.created_at, i.approved_at, i.approved_by
`

const imageJoins = `
  LEFT JOIN events e ON e.id = i.event_id
  LEFT JOIN profiles p ON p.id = i.submitted_by
`

func (r *ImageRepository) Create(ctx context.Context, params gallery.CreateParams) (*gallery.Image, error) {
	row := r.db.QueryRow(ctx, `
WITH i AS (
    INSERT INTO event_images (image_url, storage_key, event_id, submitted_by)
    VALUES ($1, $2, $3, $4)
    RETURNING *
)`+imageSelect+`  FROM i`+imageJoins,
		params.ImageURL, params.StorageKey, params.EventID, params.SubmittedBy,
	)
	image, err := scanImage(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("create image: unknown submitter or event: %w", err)
		}
		return nil, fmt.Errorf("create image: %w", err)
	}
	return &image, nil
}

func (r *ImageRepository) Get(ctx context.Context, id string) (*gallery.Image, error) {
	row := r.db.QueryRow(ctx, imageSelect+`  FROM event_images i`+imageJoins+` WHERE i.id = $1`, id)
	image, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, gallery.ErrNotFound
		}
		return nil, fmt.Errorf("get image: %w", err)
	}
	return &image, nil
}

func (r *ImageRepository) List(ctx context.Context, filter gallery.Filter, page gallery.Pagination) (gallery.ListResult, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = gallery.DefaultModerationLimit
	}

	var approved *bool
	switch filter.Status {
	case gallery.StatusApproved:
		v := true
		approved = &v
	case gallery.StatusPending:
		v := false
		approved = &v
	}

	var cursorCreated *time.Time
	var cursorID *string
	if page.After != nil {
		created := page.After.Timestamp.UTC()
		cursorCreated = &created
		cursorID = &page.After.ID
	}

	rows, err := r.db.Query(ctx, imageSelect+`  FROM event_images i`+imageJoins+`
 WHERE ($1::boolean IS NULL OR i.is_approved = $1::boolean)
   AND (
     $2::timestamptz IS NULL OR
     i.created_at < $2::timestamptz OR
     (i.created_at = $2::timestamptz AND i.id < $3::uuid)
   )
 ORDER BY i.created_at DESC, i.id DESC
 LIMIT $4
`, approved, cursorCreated, cursorID, limit+1)
	if err != nil {
		return gallery.ListResult{}, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	items := make([]gallery.Image, 0, limit+1)
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return gallery.ListResult{}, fmt.Errorf("scan images: %w", err)
		}
		items = append(items, image)
	}
	if err := rows.Err(); err != nil {
		return gallery.ListResult{}, fmt.Errorf("iterate images: %w", err)
	}

	result := gallery.ListResult{}
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		result.NextCursor = pagination.EncodeCursor(last.CreatedAt, last.ID)
	}
	result.Images = items
	return result, nil
}

// Approve sets the approval only while the image is still pending. The
// approval time is never earlier than the submission time.
func (r *ImageRepository) Approve(ctx context.Context, id, approvedBy string, at time.Time) (*gallery.Image, error) {
	var approver *string
	if approvedBy != "" {
		approver = &approvedBy
	}
	row := r.db.QueryRow(ctx, `
WITH i AS (
    UPDATE event_images
       SET is_approved = true,
           approved_at = GREATEST($2::timestamptz, created_at),
           approved_by = $3
     WHERE id = $1 AND is_approved = false
    RETURNING *
)`+imageSelect+`  FROM i`+imageJoins,
		id, at, approver,
	)
	image, err := scanImage(row)
	if err == nil {
		return &image, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missOrApproved(ctx, id)
	}
	if isInvalidText(err) {
		return nil, gallery.ErrNotFound
	}
	return nil, fmt.Errorf("approve image: %w", err)
}

func (r *ImageRepository) DeletePending(ctx context.Context, id string) (*gallery.Image, error) {
	image, err := r.delete(ctx, id, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missOrApproved(ctx, id)
	}
	return image, err
}

func (r *ImageRepository) Delete(ctx context.Context, id string) (*gallery.Image, error) {
	image, err := r.delete(ctx, id, false)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, gallery.ErrNotFound
	}
	return image, err
}

func (r *ImageRepository) delete(ctx context.Context, id string, onlyPending bool) (*gallery.Image, error) {
	row := r.db.QueryRow(ctx, `
WITH i AS (
    DELETE FROM event_images
     WHERE id = $1 AND (NOT $2::boolean OR is_approved = false)
    RETURNING *
)`+imageSelect+`  FROM i`+imageJoins,
		id, onlyPending,
	)
	image, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if isInvalidText(err) {
			return nil, gallery.ErrNotFound
		}
		return nil, fmt.Errorf("delete image: %w", err)
	}
	return &image, nil
}

// missOrApproved explains why a conditional statement matched no row: the
// image is gone, or it exists and is no longer pending.
func (r *ImageRepository) missOrApproved(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM event_images WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check image state: %w", err)
	}
	if !exists {
		return gallery.ErrNotFound
	}
	return gallery.ErrNotPending
}

func (r *ImageRepository) Counts(ctx context.Context) (gallery.Counts, error) {
	var counts gallery.Counts
	err := r.db.QueryRow(ctx, `
SELECT count(*) FILTER (WHERE NOT is_approved),
       count(*) FILTER (WHERE is_approved)
  FROM event_images
`).Scan(&counts.Pending, &counts.Approved)
	if err != nil {
		return gallery.Counts{}, fmt.Errorf("count images: %w", err)
	}
	return counts, nil
}

func scanImage(row pgx.Row) (gallery.Image, error) {
	var image gallery.Image
	err := row.Scan(
		&image.ID,
		&image.ImageURL,
		&image.StorageKey,
		&image.EventID,
		&image.EventTitle,
		&image.SubmittedBy,
		&image.SubmitterName,
		&image.IsApproved,
		&image.CreatedAt,
		&image.ApprovedAt,
		&image.ApprovedBy,
	)
	return image, err
}
