package handlers

import (
	"time"

	"github.com/Togather-Foundation/gallery/internal/domain/events"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
	"github.com/Togather-Foundation/gallery/internal/domain/profiles"
)

type eventView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventDate   time.Time `json:"event_date"`
	Location    string    `json:"location"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newEventView(e events.Event) eventView {
	return eventView{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		EventDate:   e.EventDate,
		Location:    e.Location,
		ImageURL:    e.ImageURL,
		CreatedAt:   e.CreatedAt,
	}
}

// publicImageView is what anonymous visitors see. It omits moderation fields.
type publicImageView struct {
	ID            string     `json:"id"`
	ImageURL      string     `json:"image_url"`
	EventID       *string    `json:"event_id"`
	EventTitle    string     `json:"event_title,omitempty"`
	SubmitterName string     `json:"submitter_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
}

func newPublicImageView(i gallery.Image) publicImageView {
	return publicImageView{
		ID:            i.ID,
		ImageURL:      i.ImageURL,
		EventID:       i.EventID,
		EventTitle:    i.EventTitle,
		SubmitterName: i.SubmitterName,
		CreatedAt:     i.CreatedAt,
		ApprovedAt:    i.ApprovedAt,
	}
}

type imageView struct {
	ID            string         `json:"id"`
	ImageURL      string         `json:"image_url"`
	EventID       *string        `json:"event_id"`
	EventTitle    string         `json:"event_title,omitempty"`
	SubmittedBy   string         `json:"submitted_by"`
	SubmitterName string         `json:"submitter_name,omitempty"`
	Status        gallery.Status `json:"status"`
	IsApproved    bool           `json:"is_approved"`
	CreatedAt     time.Time      `json:"created_at"`
	ApprovedAt    *time.Time     `json:"approved_at"`
	ApprovedBy    *string        `json:"approved_by"`
}

func newImageView(i gallery.Image) imageView {
	return imageView{
		ID:            i.ID,
		ImageURL:      i.ImageURL,
		EventID:       i.EventID,
		EventTitle:    i.EventTitle,
		SubmittedBy:   i.SubmittedBy,
		SubmitterName: i.SubmitterName,
		Status:        i.Status(),
		IsApproved:    i.IsApproved,
		CreatedAt:     i.CreatedAt,
		ApprovedAt:    i.ApprovedAt,
		ApprovedBy:    i.ApprovedBy,
	}
}

func newImageViews(images []gallery.Image) []imageView {
	out := make([]imageView, 0, len(images))
	for _, img := range images {
		out = append(out, newImageView(img))
	}
	return out
}

type profileView struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func newProfileView(p profiles.Profile) profileView {
	return profileView{
		ID:        p.ID,
		FullName:  p.FullName,
		Role:      string(p.Role),
		IsAdmin:   p.IsAdmin(),
		CreatedAt: p.CreatedAt,
	}
}
