package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	Media       MediaConfig     `yaml:"media"`
	Uploads     UploadConfig    `yaml:"uploads"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Jobs        JobsConfig      `yaml:"jobs"`
	Email       EmailConfig     `yaml:"email"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Logging     LoggingConfig   `yaml:"logging"`
	Environment string          `yaml:"environment" env:"ENVIRONMENT" validate:"oneof=development test staging production"`
}

type ServerConfig struct {
	Host    string `yaml:"host" env:"SERVER_HOST"`
	Port    int    `yaml:"port" env:"SERVER_PORT" validate:"min=1,max=65535"`
	BaseURL string `yaml:"base_url" env:"SERVER_BASE_URL" validate:"required,url"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url" env:"DATABASE_URL" validate:"required"`
	MaxConnections int    `yaml:"max_connections" env:"DATABASE_MAX_CONNECTIONS" validate:"min=1"`
	// StoreTimeout bounds every individual database or object storage call.
	StoreTimeout time.Duration `yaml:"store_timeout" env:"STORE_TIMEOUT" validate:"min=1s"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" validate:"required,min=32"`
	JWTExpiry time.Duration `yaml:"jwt_expiry" env:"JWT_EXPIRY"`
	Issuer    string        `yaml:"issuer" env:"JWT_ISSUER"`
}

type MediaConfig struct {
	Driver          string `yaml:"driver" env:"MEDIA_DRIVER" validate:"oneof=s3 local"`
	Bucket          string `yaml:"bucket" env:"MEDIA_S3_BUCKET" validate:"required_if=Driver s3"`
	Region          string `yaml:"region" env:"MEDIA_S3_REGION" validate:"required_if=Driver s3"`
	Endpoint        string `yaml:"endpoint" env:"MEDIA_S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"MEDIA_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MEDIA_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"MEDIA_S3_USE_PATH_STYLE"`
	PublicBaseURL   string `yaml:"public_base_url" env:"MEDIA_PUBLIC_BASE_URL"`
	LocalDir        string `yaml:"local_dir" env:"MEDIA_LOCAL_DIR" validate:"required_if=Driver local"`
}

type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" env:"UPLOAD_MAX_BYTES" validate:"min=1"`
}

type RateLimitConfig struct {
	PublicPerMinute    int `yaml:"public_per_minute" env:"RATE_LIMIT_PUBLIC"`
	AdminPerMinute     int `yaml:"admin_per_minute" env:"RATE_LIMIT_ADMIN"`
	SubmissionsPerHour int `yaml:"submissions_per_hour" env:"RATE_LIMIT_SUBMISSIONS_PER_HOUR"`
}

type JobsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"JOBS_ENABLED"`
	MediaCleanupMaxAttempts int  `yaml:"media_cleanup_max_attempts" env:"JOB_RETRY_MEDIA_CLEANUP" validate:"min=1"`
	Workers                 int  `yaml:"workers" env:"JOB_WORKERS" validate:"min=1"`
}

type EmailConfig struct {
	ResendAPIKey     string `yaml:"resend_api_key" env:"EMAIL_RESEND_API_KEY"`
	From             string `yaml:"from" env:"EMAIL_FROM" validate:"omitempty,email"`
	ModeratorAddress string `yaml:"moderator_address" env:"EMAIL_MODERATOR_ADDRESS" validate:"omitempty,email"`
}

// Enabled reports whether moderator notifications can be sent.
func (c EmailConfig) Enabled() bool {
	return c.ResendAPIKey != "" && c.From != "" && c.ModeratorAddress != ""
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" env:"TRACING_ENABLED"`
	Exporter     string  `yaml:"exporter" env:"TRACING_EXPORTER" validate:"oneof=stdout otlp none"`
	ServiceName  string  `yaml:"service_name" env:"TRACING_SERVICE_NAME"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"TRACING_OTLP_ENDPOINT"`
	SampleRate   float64 `yaml:"sample_rate" env:"TRACING_SAMPLE_RATE" validate:"min=0,max=1"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=json console"`
}

// Defaults returns the configuration used when neither a file nor the
// environment provides a value.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			MaxConnections: 25,
			StoreTimeout:   10 * time.Second,
		},
		Auth: AuthConfig{
			JWTExpiry: 24 * time.Hour,
			Issuer:    "event-gallery",
		},
		Media: MediaConfig{
			Driver:   "local",
			LocalDir: "data/media",
		},
		Uploads: UploadConfig{
			MaxBytes: 10 << 20,
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:    120,
			AdminPerMinute:     0,
			SubmissionsPerHour: 10,
		},
		Jobs: JobsConfig{
			Enabled:                 true,
			MediaCleanupMaxAttempts: 8,
			Workers:                 4,
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "event-gallery",
			SampleRate:  1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Environment: "development",
	}
}

// Load reads configuration from the environment on top of Defaults.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile reads an optional YAML file, then applies environment overrides and
// validates the result. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Media.PublicBaseURL == "" && cfg.Media.Driver == "local" {
		cfg.Media.PublicBaseURL = strings.TrimRight(cfg.Server.BaseURL, "/") + "/media"
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("env")
	})
	return v
}

// Validate checks cfg and reports every failing setting by its environment
// variable name.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required", "required_if":
			problems = append(problems, fmt.Sprintf("%s is required", fe.Field()))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("SERVER_BASE_URL", cfg.Server.BaseURL)

	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxConnections = getEnvInt("DATABASE_MAX_CONNECTIONS", cfg.Database.MaxConnections)
	cfg.Database.StoreTimeout = getEnvDuration("STORE_TIMEOUT", cfg.Database.StoreTimeout)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTExpiry = getEnvDuration("JWT_EXPIRY", cfg.Auth.JWTExpiry)
	cfg.Auth.Issuer = getEnv("JWT_ISSUER", cfg.Auth.Issuer)

	cfg.Media.Driver = strings.ToLower(getEnv("MEDIA_DRIVER", cfg.Media.Driver))
	cfg.Media.Bucket = getEnv("MEDIA_S3_BUCKET", cfg.Media.Bucket)
	cfg.Media.Region = getEnv("MEDIA_S3_REGION", cfg.Media.Region)
	cfg.Media.Endpoint = getEnv("MEDIA_S3_ENDPOINT", cfg.Media.Endpoint)
	cfg.Media.AccessKeyID = getEnv("MEDIA_S3_ACCESS_KEY_ID", cfg.Media.AccessKeyID)
	cfg.Media.SecretAccessKey = getEnv("MEDIA_S3_SECRET_ACCESS_KEY", cfg.Media.SecretAccessKey)
	cfg.Media.UsePathStyle = getEnvBool("MEDIA_S3_USE_PATH_STYLE", cfg.Media.UsePathStyle)
	cfg.Media.PublicBaseURL = getEnv("MEDIA_PUBLIC_BASE_URL", cfg.Media.PublicBaseURL)
	cfg.Media.LocalDir = getEnv("MEDIA_LOCAL_DIR", cfg.Media.LocalDir)

	cfg.Uploads.MaxBytes = int64(getEnvInt("UPLOAD_MAX_BYTES", int(cfg.Uploads.MaxBytes)))

	cfg.RateLimit.PublicPerMinute = getEnvInt("RATE_LIMIT_PUBLIC", cfg.RateLimit.PublicPerMinute)
	cfg.RateLimit.AdminPerMinute = getEnvInt("RATE_LIMIT_ADMIN", cfg.RateLimit.AdminPerMinute)
	cfg.RateLimit.SubmissionsPerHour = getEnvInt("RATE_LIMIT_SUBMISSIONS_PER_HOUR", cfg.RateLimit.SubmissionsPerHour)

	cfg.Jobs.Enabled = getEnvBool("JOBS_ENABLED", cfg.Jobs.Enabled)
	cfg.Jobs.MediaCleanupMaxAttempts = getEnvInt("JOB_RETRY_MEDIA_CLEANUP", cfg.Jobs.MediaCleanupMaxAttempts)
	cfg.Jobs.Workers = getEnvInt("JOB_WORKERS", cfg.Jobs.Workers)

	cfg.Email.ResendAPIKey = getEnv("EMAIL_RESEND_API_KEY", cfg.Email.ResendAPIKey)
	cfg.Email.From = getEnv("EMAIL_FROM", cfg.Email.From)
	cfg.Email.ModeratorAddress = getEnv("EMAIL_MODERATOR_ADDRESS", cfg.Email.ModeratorAddress)

	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.ServiceName = getEnv("TRACING_SERVICE_NAME", cfg.Tracing.ServiceName)
	cfg.Tracing.OTLPEndpoint = getEnv("TRACING_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvDuration accepts Go duration strings ("15s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
