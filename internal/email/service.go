package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/gallery/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrDisabled is returned when a notice is requested but email is not configured.
var ErrDisabled = errors.New("email disabled")

// Service sends moderator notifications through Resend.
type Service struct {
	config       config.EmailConfig
	resendClient *resend.Client
	templates    *template.Template
	logger       zerolog.Logger
}

// SubmissionNotice holds data for the new submission template.
type SubmissionNotice struct {
	ImageID       string
	ImageURL      string
	SubmitterName string
	SubmittedAt   time.Time
	ReviewURL     string
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	var client *resend.Client
	if cfg.Enabled() {
		client = resend.NewClient(cfg.ResendAPIKey)
	}
	return newService(cfg, client, logger)
}

func newService(cfg config.EmailConfig, client *resend.Client, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled() {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
		if err := validateEmailAddress(cfg.ModeratorAddress); err != nil {
			return nil, fmt.Errorf("invalid moderator email in config: %w", err)
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Service{
		config:       cfg,
		resendClient: client,
		templates:    templates,
		logger:       logger.With().Str("component", "email").Logger(),
	}, nil
}

func (s *Service) Enabled() bool {
	return s.config.Enabled() && s.resendClient != nil
}

// SendSubmissionNotice tells the moderator inbox that a new image is pending.
func (s *Service) SendSubmissionNotice(ctx context.Context, notice SubmissionNotice) error {
	if !s.Enabled() {
		s.logger.Debug().Str("image_id", notice.ImageID).Msg("email disabled, skipping submission notice")
		return ErrDisabled
	}

	// Links end up in an href; anything but http(s) is refused.
	if err := validateLink(notice.ReviewURL); err != nil {
		return fmt.Errorf("invalid review link: %w", err)
	}
	if err := validateLink(notice.ImageURL); err != nil {
		return fmt.Errorf("invalid image link: %w", err)
	}
	if notice.SubmitterName == "" {
		notice.SubmitterName = "Someone"
	}

	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "submission_notice.html", notice); err != nil {
		return fmt.Errorf("failed to render submission notice: %w", err)
	}

	return s.sendViaResend(ctx, s.config.ModeratorAddress, "New image awaiting review", body.String())
}

// sendViaResend does not retry; the job queue owns retries.
func (s *Service) sendViaResend(ctx context.Context, to, subject, htmlBody string) error {
	params := &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}

	sent, err := s.resendClient.Emails.SendWithContext(ctx, params)
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			s.logger.Warn().
				Str("limit", rateLimitErr.Limit).
				Str("reset", rateLimitErr.Reset).
				Msg("resend rate limit exceeded")
			return fmt.Errorf("email rate limit exceeded (resets in %s seconds): %w", rateLimitErr.Reset, err)
		}
		return fmt.Errorf("resend API error: %w", err)
	}

	s.logger.Info().
		Str("email_id", sent.Id).
		Str("to", to).
		Msg("email sent via Resend")
	return nil
}

// validateEmailAddress rejects malformed addresses and header injection.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

func validateLink(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
