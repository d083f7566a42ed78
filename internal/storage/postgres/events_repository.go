package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Togather-Foundation/gallery/internal/api/pagination"
	"github.com/Togather-Foundation/gallery/internal/domain/events"
)

type EventRepository struct {
	db queryer
}

var _ events.Repository = (*EventRepository)(nil)

const eventColumns = `id, title, description, event_date, location, image_url, created_at`

func (r *EventRepository) List(ctx context.Context, page events.Pagination) (events.ListResult, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = events.DefaultLimit
	}

	var cursorDate *time.Time
	var cursorID *string
	if page.After != nil {
		date := page.After.Timestamp.UTC()
		cursorDate = &date
		cursorID = &page.After.ID
	}

	rows, err := r.db.Query(ctx, `
SELECT `+eventColumns+`
  FROM events
 WHERE $1::timestamptz IS NULL
    OR event_date > $1::timestamptz
    OR (event_date = $1::timestamptz AND id > $2::uuid)
 ORDER BY event_date ASC, id ASC
 LIMIT $3
`, cursorDate, cursorID, limit+1)
	if err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0, limit+1)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return events.ListResult{}, fmt.Errorf("scan events: %w", err)
		}
		items = append(items, event)
	}
	if err := rows.Err(); err != nil {
		return events.ListResult{}, fmt.Errorf("iterate events: %w", err)
	}

	result := events.ListResult{}
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		result.NextCursor = pagination.EncodeCursor(last.EventDate, last.ID)
	}
	result.Events = items
	return result, nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (*events.Event, error) {
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

func (r *EventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func scanEvent(row pgx.Row) (events.Event, error) {
	var (
		event    events.Event
		imageURL *string
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.EventDate,
		&event.Location,
		&imageURL,
		&event.CreatedAt,
	); err != nil {
		return events.Event{}, err
	}
	event.ImageURL = derefString(imageURL)
	return event, nil
}
