package gallery

import (
	"context"
	"net/url"
	"time"
)

const (
	DefaultGalleryLimit = 24
	MaxGalleryLimit     = 100
)

// GalleryService is the public read path. It only ever returns approved
// images.
type GalleryService struct {
	repo    Repository
	timeout time.Duration
}

func NewGalleryService(repo Repository, timeout time.Duration) *GalleryService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GalleryService{repo: repo, timeout: timeout}
}

func (s *GalleryService) ListApproved(ctx context.Context, page Pagination) (ListResult, error) {
	if page.Limit <= 0 || page.Limit > MaxGalleryLimit {
		page.Limit = DefaultGalleryLimit
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.List(ctx, Filter{Status: StatusApproved}, page)
}

func ParseGalleryPagination(values url.Values) (Pagination, error) {
	return parsePagination(values, DefaultGalleryLimit, MaxGalleryLimit)
}
