package events

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Togather-Foundation/gallery/internal/api/pagination"
	"github.com/Togather-Foundation/gallery/internal/domain/ids"
	"github.com/Togather-Foundation/gallery/internal/sanitize"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns events ordered by event_date ascending.
func (s *Service) List(ctx context.Context, page Pagination) (ListResult, error) {
	if page.Limit <= 0 || page.Limit > MaxLimit {
		page.Limit = DefaultLimit
	}
	result, err := s.repo.List(ctx, page)
	if err != nil {
		return ListResult{}, err
	}
	for i := range result.Events {
		clean(&result.Events[i])
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	normalized, err := ids.NormalizeUUID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	event, err := s.repo.Get(ctx, normalized)
	if err != nil {
		return nil, err
	}
	clean(event)
	return event, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func clean(e *Event) {
	e.Title = sanitize.Text(e.Title)
	e.Location = sanitize.Text(e.Location)
	e.Description = sanitize.HTML(e.Description)
}

type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func ParsePagination(values url.Values) (Pagination, error) {
	page := Pagination{Limit: DefaultLimit}

	limit, err := pagination.ParseLimit(values.Get("limit"), DefaultLimit, MaxLimit)
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
