package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Readiness is what the readiness probe needs from storage.
type Readiness interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (version uint, dirty bool, err error)
}

type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type HealthChecker struct {
	store     Readiness
	version   string
	gitCommit string
	timeout   time.Duration
}

func NewHealthChecker(store Readiness, version, gitCommit string) *HealthChecker {
	return &HealthChecker{store: store, version: version, gitCommit: gitCommit, timeout: 2 * time.Second}
}

// Healthz reports liveness only; it never touches dependencies.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Readyz fails with 503 while the database is unreachable or the schema is
// missing or dirty.
func (h *HealthChecker) Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Err() != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		}

		checks := map[string]CheckResult{
			"database":   h.checkDatabase(r.Context()),
			"migrations": h.checkMigrations(r.Context()),
		}

		status, code := "ready", http.StatusOK
		for _, check := range checks {
			if check.Status == "fail" {
				status, code = "unavailable", http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(HealthCheck{
			Status:    status,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.store == nil {
		return CheckResult{Status: "fail", Message: "database not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "database ping failed"
		if ctx.Err() == context.DeadlineExceeded {
			message = fmt.Sprintf("database ping timed out after %s", h.timeout)
		}
		return CheckResult{Status: "fail", Message: message, LatencyMs: latency}
	}
	return CheckResult{Status: "pass", LatencyMs: latency}
}

func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.store == nil {
		return CheckResult{Status: "fail", Message: "database not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	version, dirty, err := h.store.SchemaVersion(ctx)
	latency := time.Since(start).Milliseconds()
	switch {
	case err != nil:
		return CheckResult{Status: "fail", Message: "migrations not applied; run `server migrate up`", LatencyMs: latency}
	case dirty:
		return CheckResult{Status: "fail", Message: fmt.Sprintf("migration %d is dirty", version), LatencyMs: latency}
	}
	return CheckResult{Status: "pass", Message: fmt.Sprintf("version %d", version), LatencyMs: latency}
}
