package gallery

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("image not found")
	ErrNotPending      = errors.New("image is not pending moderation")
	ErrMissingFile     = errors.New("image file is required")
	ErrTooLarge        = errors.New("image file is too large")
	ErrUnsupportedType = errors.New("unsupported image type")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Image is a submitted photo. It is visible in the public gallery exactly
// when IsApproved is true; ApprovedAt is set if and only if it is approved.
type Image struct {
	ID            string
	ImageURL      string
	StorageKey    string
	EventID       *string
	EventTitle    string
	SubmittedBy   string
	SubmitterName string
	IsApproved    bool
	CreatedAt     time.Time
	ApprovedAt    *time.Time
	ApprovedBy    *string
}

func (i Image) Status() Status {
	if i.IsApproved {
		return StatusApproved
	}
	return StatusPending
}

// Partition splits images into pending and approved, preserving order.
func Partition(images []Image) (pending, approved []Image) {
	pending = make([]Image, 0, len(images))
	approved = make([]Image, 0, len(images))
	for _, img := range images {
		if img.IsApproved {
			approved = append(approved, img)
		} else {
			pending = append(pending, img)
		}
	}
	return pending, approved
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
