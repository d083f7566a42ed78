package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/gallery/internal/api"
	"github.com/Togather-Foundation/gallery/internal/api/middleware"
	"github.com/Togather-Foundation/gallery/internal/audit"
	"github.com/Togather-Foundation/gallery/internal/auth"
	"github.com/Togather-Foundation/gallery/internal/config"
	"github.com/Togather-Foundation/gallery/internal/domain/events"
	"github.com/Togather-Foundation/gallery/internal/domain/gallery"
	"github.com/Togather-Foundation/gallery/internal/domain/profiles"
	"github.com/Togather-Foundation/gallery/internal/email"
	"github.com/Togather-Foundation/gallery/internal/jobs"
	"github.com/Togather-Foundation/gallery/internal/media"
	"github.com/Togather-Foundation/gallery/internal/metrics"
	"github.com/Togather-Foundation/gallery/internal/storage/postgres"
	"github.com/Togather-Foundation/gallery/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

var (
	serverHost string
	serverPort int
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and background workers",
		Long: `Start the HTTP API and, when JOBS_ENABLED is set, the River workers that
delete rejected media and email moderators about new submissions.

Examples:
  server serve
  server serve --port 9090 --log-level debug
  server serve --config /etc/gallery/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&serverHost, "host", "", "listen address (overrides SERVER_HOST)")
	cmd.Flags().IntVar(&serverPort, "port", 0, "listen port (overrides SERVER_PORT)")
	return cmd
}

func runServer(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting gallery server")

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	metrics.Init(Version, GitCommit, BuildDate)

	pool, err := postgres.Connect(ctx, postgres.PoolConfig{URL: cfg.Database.URL, MaxConnections: cfg.Database.MaxConnections})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()
	if err := metrics.RegisterPool(pool); err != nil {
		logger.Warn().Err(err).Msg("pool metrics not registered")
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	store, mediaHandler, err := newMediaStore(cfg)
	if err != nil {
		return fmt.Errorf("media store: %w", err)
	}
	logger.Info().Str("driver", cfg.Media.Driver).Msg("media store ready")

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	if !mailer.Enabled() {
		logger.Info().Msg("email disabled; submission notices will not be sent")
	}

	var enqueuer gallery.Enqueuer = gallery.NopEnqueuer{}
	var riverClient *river.Client[pgx.Tx]
	if cfg.Jobs.Enabled {
		riverClient, err = newRiverClient(pool, cfg, repo, store, mailer)
		if err != nil {
			return fmt.Errorf("river client: %w", err)
		}
		enqueuer = jobs.NewQueue(riverClient, cfg.Jobs.MediaCleanupMaxAttempts, mailer.Enabled())
	} else {
		logger.Warn().Msg("jobs disabled; rejected media is not deleted from storage")
	}

	eventService := events.NewService(repo.Events())
	profileService := profiles.NewService(repo.Profiles())
	submissions := gallery.NewSubmissionService(repo.Images(), store, enqueuer, gallery.SubmissionConfig{
		MaxBytes:     cfg.Uploads.MaxBytes,
		StoreTimeout: cfg.Database.StoreTimeout,
	}, logger)
	moderation := gallery.NewModerationService(repo.Images(), eventService, enqueuer, cfg.Database.StoreTimeout, logger)
	view := gallery.NewGalleryService(repo.Images(), cfg.Database.StoreTimeout)

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	go limiter.Run(ctx, 10*time.Minute)

	handler := api.NewRouter(api.Deps{
		Environment:  cfg.Environment,
		RequireHTTPS: cfg.Environment == "production",
		MaxUpload:    cfg.Uploads.MaxBytes,
		Version:      Version,
		GitCommit:    GitCommit,
		BuildDate:    BuildDate,
		Events:       eventService,
		Gallery:      view,
		Submissions:  submissions,
		Moderation:   moderation,
		Tokens:       auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer),
		Profiles:     profileService,
		Limiter:      limiter,
		Audit:        audit.NewLogger(logger),
		Readiness:    repo,
		Media:        mediaHandler,
		Logger:       logger,
	})

	if riverClient != nil {
		if err := riverClient.Start(ctx); err != nil {
			return fmt.Errorf("river workers failed to start: %w", err)
		}
		logger.Info().Int("workers", cfg.Jobs.Workers).Msg("river workers started")
		defer stopRiver(riverClient, logger)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	return gracefulShutdown(server, logger)
}

// newMediaStore returns the configured store and, for the local driver, the
// handler that serves its files under /media/.
func newMediaStore(cfg config.Config) (media.Store, http.Handler, error) {
	switch cfg.Media.Driver {
	case "s3":
		store, err := media.NewS3Store(media.S3Config{
			Bucket:          cfg.Media.Bucket,
			Region:          cfg.Media.Region,
			Endpoint:        cfg.Media.Endpoint,
			AccessKeyID:     cfg.Media.AccessKeyID,
			SecretAccessKey: cfg.Media.SecretAccessKey,
			UsePathStyle:    cfg.Media.UsePathStyle,
			PublicBaseURL:   cfg.Media.PublicBaseURL,
		})
		return store, nil, err
	default:
		baseURL := cfg.Media.PublicBaseURL
		if baseURL == "" {
			baseURL = strings.TrimRight(cfg.Server.BaseURL, "/") + "/media"
		}
		store, err := media.NewLocalStore(cfg.Media.LocalDir, baseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Handler(), nil
	}
}

func newRiverClient(pool *pgxpool.Pool, cfg config.Config, repo *postgres.Repository, store media.Store, mailer *email.Service) (*river.Client[pgx.Tx], error) {
	slogger := config.NewSlogLogger(cfg.Logging)
	workers := jobs.NewWorkers(jobs.WorkerDeps{
		Store:        store,
		StoreTimeout: cfg.Database.StoreTimeout,
		Images:       repo.Images(),
		Notifier:     mailer,
		BaseURL:      cfg.Server.BaseURL,
		Logger:       slogger,
	})
	return jobs.NewClient(pool, workers, slogger, jobs.ClientOptions{
		MaxWorkers:      cfg.Jobs.Workers,
		CleanupAttempts: cfg.Jobs.MediaCleanupMaxAttempts,
		Hooks:           []rivertype.Hook{metrics.NewRiverMetricsHook()},
	})
}

func stopRiver(client *river.Client[pgx.Tx], logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := client.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("river workers shutdown error")
		return
	}
	logger.Info().Msg("river workers stopped")
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
