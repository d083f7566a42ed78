package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/riverqueue/river/rivertype"

	"github.com/Togather-Foundation/gallery/internal/metrics"
)

func TestNewRetryPolicy(t *testing.T) {
	policy := NewRetryPolicy(0)

	if policy.Default.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Default.MaxAttempts = %d, want %d", policy.Default.MaxAttempts, DefaultMaxAttempts)
	}

	tests := []struct {
		kind                string
		expectedMaxAttempts int
		expectedBaseDelay   time.Duration
		expectedMaxDelay    time.Duration
	}{
		{JobKindMediaCleanup, MediaCleanupMaxAttempts, 1 * time.Minute, 6 * time.Hour},
		{JobKindSubmissionNotice, SubmissionNoticeMaxAttempts, 30 * time.Second, 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			config, ok := policy.ByKind[tt.kind]
			if !ok {
				t.Fatalf("kind %s not found in ByKind map", tt.kind)
			}
			if config.MaxAttempts != tt.expectedMaxAttempts {
				t.Errorf("MaxAttempts = %d, want %d", config.MaxAttempts, tt.expectedMaxAttempts)
			}
			if config.BaseDelay != tt.expectedBaseDelay {
				t.Errorf("BaseDelay = %v, want %v", config.BaseDelay, tt.expectedBaseDelay)
			}
			if config.MaxDelay != tt.expectedMaxDelay {
				t.Errorf("MaxDelay = %v, want %v", config.MaxDelay, tt.expectedMaxDelay)
			}
		})
	}
}

func TestNewRetryPolicy_CleanupOverride(t *testing.T) {
	policy := NewRetryPolicy(12)
	if got := policy.InsertOpts(JobKindMediaCleanup).MaxAttempts; got != 12 {
		t.Errorf("cleanup MaxAttempts = %d, want 12", got)
	}
	if got := policy.InsertOpts("unknown-kind").MaxAttempts; got != DefaultMaxAttempts {
		t.Errorf("unknown kind MaxAttempts = %d, want %d", got, DefaultMaxAttempts)
	}
}

func TestRetryPolicy_NextRetry(t *testing.T) {
	policy := NewRetryPolicy(0)
	now := time.Now()

	tests := []struct {
		name          string
		kind          string
		attempt       int
		expectedDelay time.Duration
	}{
		{"cleanup first attempt", JobKindMediaCleanup, 1, 1 * time.Minute},
		{"cleanup third attempt", JobKindMediaCleanup, 3, 4 * time.Minute},
		{"cleanup capped", JobKindMediaCleanup, 20, 6 * time.Hour},
		{"notice second attempt", JobKindSubmissionNotice, 2, 1 * time.Minute},
		{"zero attempt treated as first", JobKindSubmissionNotice, 0, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &rivertype.JobRow{Kind: tt.kind, Attempt: tt.attempt, AttemptedAt: &now}
			if got := policy.NextRetry(job).Sub(now); got != tt.expectedDelay {
				t.Errorf("NextRetry() delay = %v, want %v", got, tt.expectedDelay)
			}
		})
	}
}

func TestNewClientConfig(t *testing.T) {
	config := NewClientConfig(nil, nil, ClientOptions{})
	if got := config.Queues["default"].MaxWorkers; got != 4 {
		t.Errorf("default MaxWorkers = %d, want 4", got)
	}
	if config.ErrorHandler != nil {
		t.Error("ErrorHandler set without a logger")
	}
}

func TestCountLostCleanups(t *testing.T) {
	before := testutil.ToFloat64(metrics.MediaCleanup.WithLabelValues("lost"))

	CountLostCleanups(context.Background(), &rivertype.JobRow{Kind: JobKindMediaCleanup, Attempt: 2, MaxAttempts: 8}, errors.New("x"))
	CountLostCleanups(context.Background(), &rivertype.JobRow{Kind: JobKindSubmissionNotice, Attempt: 3, MaxAttempts: 3}, errors.New("x"))
	if got := testutil.ToFloat64(metrics.MediaCleanup.WithLabelValues("lost")) - before; got != 0 {
		t.Fatalf("lost cleanups = %v before exhausting retries, want 0", got)
	}

	CountLostCleanups(context.Background(), &rivertype.JobRow{Kind: JobKindMediaCleanup, Attempt: 8, MaxAttempts: 8}, errors.New("x"))
	if got := testutil.ToFloat64(metrics.MediaCleanup.WithLabelValues("lost")) - before; got != 1 {
		t.Errorf("lost cleanups = %v, want 1", got)
	}
}

func TestAlertingErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var notified []string
	handler := NewAlertingErrorHandler(logger, func(_ context.Context, job *rivertype.JobRow, err error) {
		notified = append(notified, job.Kind+": "+err.Error())
	})

	job := &rivertype.JobRow{ID: 7, Kind: JobKindMediaCleanup, Attempt: 1, MaxAttempts: 8}
	if res := handler.HandleError(context.Background(), job, errors.New("bucket down")); res != nil {
		t.Fatalf("HandleError returned %+v, want nil so the retry policy applies", res)
	}
	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Errorf("expected warn for a retryable attempt, got %s", buf.String())
	}

	buf.Reset()
	job.Attempt = 8
	handler.HandlePanic(context.Background(), job, "boom", "stack")
	if !strings.Contains(buf.String(), `"level":"ERROR"`) || !strings.Contains(buf.String(), "no attempts left") {
		t.Errorf("expected error for the final attempt, got %s", buf.String())
	}

	want := []string{"media_cleanup: bucket down", "media_cleanup: panic: boom"}
	if strings.Join(notified, "|") != strings.Join(want, "|") {
		t.Errorf("notified = %v, want %v", notified, want)
	}
}
