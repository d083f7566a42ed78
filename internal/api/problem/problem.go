package problem

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

// Problem type URIs.
const (
	TypeServerError     = "https://gallery.events/problems/server-error"
	TypeValidation      = "https://gallery.events/problems/validation-error"
	TypeNotFound        = "https://gallery.events/problems/not-found"
	TypeConflict        = "https://gallery.events/problems/conflict"
	TypePayloadTooLarge = "https://gallery.events/problems/payload-too-large"
	TypeUnauthorized    = "https://gallery.events/problems/unauthorized"
	TypeForbidden       = "https://gallery.events/problems/forbidden"
	TypeRateLimited     = "https://gallery.events/problems/rate-limited"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// ProblemDetails is an RFC 7807 body.
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

type Option func(*ProblemDetails)

func WithDetail(detail string) Option {
	return func(p *ProblemDetails) { p.Detail = detail }
}

// WithFieldError reports which request field failed validation.
func WithFieldError(field, message string) Option {
	return func(p *ProblemDetails) {
		if p.Errors == nil {
			p.Errors = map[string]string{}
		}
		p.Errors[field] = message
	}
}

// Write logs err through the request logger (warn for 4xx, error for 5xx)
// and writes the problem. Raw error text is only exposed in development and
// test, and never for server errors outside those environments.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	p := ProblemDetails{
		Type:   typ,
		Title:  title,
		Status: status,
	}
	for _, opt := range opts {
		opt(&p)
	}

	if p.Detail == "" && err != nil {
		if env == "development" || env == "test" {
			p.Detail = err.Error()
		} else {
			p.Detail = http.StatusText(status)
		}
	}
	if r != nil {
		if p.Instance == "" {
			p.Instance = r.URL.Path
		}
		logProblem(r, p, err)
	}

	WriteProblem(w, p)
}

func logProblem(r *http.Request, p ProblemDetails, err error) {
	if err == nil {
		return
	}
	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if p.Status >= 500 {
		event = logger.Error()
	}
	event.
		Err(err).
		Int("status", p.Status).
		Str("type", p.Type).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Msg(p.Title)
}

func WriteProblem(w http.ResponseWriter, p ProblemDetails) {
	payload, err := json.Marshal(p)
	w.Header().Set("Content-Type", contentType)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"about:blank","title":"Internal Server Error","status":500}`))
		return
	}
	w.WriteHeader(p.Status)
	_, _ = w.Write(payload)
}
