// Package config loads settings for the controller and worker from an optional
// YAML file and environment variables, environment taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"productory/internal/objectstore"
	"productory/internal/observability"
	"productory/internal/storagepath"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all configuration values for the application.
type Config struct {
	// Persistence: "postgres" (default) or "memory"
	StoreBackend string
	DatabaseURL  string

	// HTTP server port for the controller
	HTTPPort int

	// Bearer token required on POST /users; empty leaves user creation open
	AdminToken string

	LogLevel string

	// OTLP/gRPC collector address for traces; empty disables export
	OTELEndpoint    string
	OTELSampleRatio float64

	// Worker-specific configuration
	WorkerID            string
	WorkerConcurrency   int
	WorkerPollInterval  time.Duration
	WorkerMaxBackoff    time.Duration
	WorkerJobTimeout    time.Duration
	WorkerRetryBackoff  time.Duration
	WorkerSweepInterval time.Duration
	WorkerStaleAfter    time.Duration // zero derives it from WorkerJobTimeout

	// Storage path scheme
	StorageBucket        string
	StorageBaseURL       string
	StorageAudioPrefix   string
	StorageMaxRetries    int
	StorageRetryDelay    time.Duration
	StorageEnableLogging bool
	PresignExpiry        time.Duration
	UploadMaxBytes       int64

	// Object store; an empty endpoint selects the in-memory store
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	MinIORegion    string

	// External speech-to-text provider
	ProviderURL     string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	// Rate limits assigned to newly created users
	DefaultRateLimit int
	DefaultRateBurst int
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"store_backend":          "STORE_BACKEND",
	"database_url":           "DATABASE_URL",
	"http_port":              "PORT",
	"admin_token":            "ADMIN_TOKEN",
	"log_level":              "LOG_LEVEL",
	"otel_endpoint":          "OTEL_EXPORTER_OTLP_ENDPOINT",
	"otel_sample_ratio":      "OTEL_TRACES_SAMPLER_ARG",
	"worker_id":              "WORKER_ID",
	"worker_concurrency":     "WORKER_CONCURRENCY",
	"worker_poll_interval":   "WORKER_POLL_INTERVAL",
	"worker_max_backoff":     "WORKER_MAX_BACKOFF",
	"worker_job_timeout":     "WORKER_JOB_TIMEOUT",
	"worker_retry_backoff":   "WORKER_RETRY_BACKOFF",
	"worker_sweep_interval":  "WORKER_SWEEP_INTERVAL",
	"worker_stale_after":     "WORKER_STALE_AFTER",
	"storage_bucket":         "STORAGE_BUCKET",
	"storage_base_url":       "STORAGE_BASE_URL",
	"storage_audio_prefix":   "STORAGE_AUDIO_PREFIX",
	"storage_max_retries":    "STORAGE_MAX_RETRIES",
	"storage_retry_delay":    "STORAGE_RETRY_DELAY",
	"storage_enable_logging": "STORAGE_ENABLE_LOGGING",
	"presign_expiry":         "STORAGE_PRESIGN_EXPIRY",
	"upload_max_bytes":       "UPLOAD_MAX_BYTES",
	"minio_endpoint":         "MINIO_ENDPOINT",
	"minio_access_key":       "MINIO_ACCESS_KEY",
	"minio_secret_key":       "MINIO_SECRET_KEY",
	"minio_use_ssl":          "MINIO_USE_SSL",
	"minio_region":           "MINIO_REGION",
	"provider_url":           "PROVIDER_URL",
	"provider_api_key":       "PROVIDER_API_KEY",
	"provider_timeout":       "PROVIDER_TIMEOUT",
	"default_rate_limit":     "DEFAULT_RATE_LIMIT",
	"default_rate_burst":     "DEFAULT_RATE_BURST",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store_backend", BackendPostgres)
	v.SetDefault("http_port", 6161)
	v.SetDefault("log_level", "info")
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("otel_sample_ratio", 1.0)

	v.SetDefault("worker_concurrency", 1)
	v.SetDefault("worker_poll_interval", time.Second)
	v.SetDefault("worker_max_backoff", 30*time.Second)
	v.SetDefault("worker_job_timeout", 30*time.Minute)
	v.SetDefault("worker_retry_backoff", 30*time.Second)
	v.SetDefault("worker_sweep_interval", 10*time.Second)

	v.SetDefault("storage_bucket", "audio-files")
	v.SetDefault("storage_audio_prefix", storagepath.DefaultAudioPathPrefix)
	v.SetDefault("storage_max_retries", storagepath.DefaultMaxRetries)
	v.SetDefault("storage_retry_delay", storagepath.DefaultRetryDelay)
	v.SetDefault("storage_enable_logging", true)
	v.SetDefault("presign_expiry", time.Hour)
	v.SetDefault("upload_max_bytes", 100<<20)

	v.SetDefault("provider_url", "http://localhost:7070")
	v.SetDefault("provider_timeout", 5*time.Minute)

	v.SetDefault("default_rate_limit", 10)
	v.SetDefault("default_rate_burst", 20)
}

// Load reads configuration from path (skipped when empty) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		StoreBackend:         strings.ToLower(strings.TrimSpace(v.GetString("store_backend"))),
		DatabaseURL:          v.GetString("database_url"),
		HTTPPort:             v.GetInt("http_port"),
		AdminToken:           v.GetString("admin_token"),
		LogLevel:             v.GetString("log_level"),
		OTELEndpoint:         v.GetString("otel_endpoint"),
		OTELSampleRatio:      v.GetFloat64("otel_sample_ratio"),
		WorkerID:             v.GetString("worker_id"),
		WorkerConcurrency:    v.GetInt("worker_concurrency"),
		WorkerPollInterval:   v.GetDuration("worker_poll_interval"),
		WorkerMaxBackoff:     v.GetDuration("worker_max_backoff"),
		WorkerJobTimeout:     v.GetDuration("worker_job_timeout"),
		WorkerRetryBackoff:   v.GetDuration("worker_retry_backoff"),
		WorkerSweepInterval:  v.GetDuration("worker_sweep_interval"),
		WorkerStaleAfter:     v.GetDuration("worker_stale_after"),
		StorageBucket:        v.GetString("storage_bucket"),
		StorageBaseURL:       v.GetString("storage_base_url"),
		StorageAudioPrefix:   v.GetString("storage_audio_prefix"),
		StorageMaxRetries:    v.GetInt("storage_max_retries"),
		StorageRetryDelay:    v.GetDuration("storage_retry_delay"),
		StorageEnableLogging: v.GetBool("storage_enable_logging"),
		PresignExpiry:        v.GetDuration("presign_expiry"),
		UploadMaxBytes:       v.GetInt64("upload_max_bytes"),
		MinIOEndpoint:        v.GetString("minio_endpoint"),
		MinIOAccessKey:       v.GetString("minio_access_key"),
		MinIOSecretKey:       v.GetString("minio_secret_key"),
		MinIOUseSSL:          v.GetBool("minio_use_ssl"),
		MinIORegion:          v.GetString("minio_region"),
		ProviderURL:          v.GetString("provider_url"),
		ProviderAPIKey:       v.GetString("provider_api_key"),
		ProviderTimeout:      v.GetDuration("provider_timeout"),
		DefaultRateLimit:     v.GetInt("default_rate_limit"),
		DefaultRateBurst:     v.GetInt("default_rate_burst"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required (env: DATABASE_URL)")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid store_backend %q: must be %s or %s", c.StoreBackend, BackendPostgres, BackendMemory)
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d", c.HTTPPort)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("worker_concurrency must be at least 1, got %d", c.WorkerConcurrency)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("upload_max_bytes must be positive, got %d", c.UploadMaxBytes)
	}
	return nil
}

// Storage returns the storage path configuration. storagepath.New validates it.
func (c *Config) Storage() storagepath.Config {
	return storagepath.Config{
		DefaultBucket:   c.StorageBucket,
		BaseURL:         c.StorageBaseURL,
		AudioPathPrefix: c.StorageAudioPrefix,
		MaxRetries:      c.StorageMaxRetries,
		RetryDelay:      c.StorageRetryDelay,
		EnableLogging:   c.StorageEnableLogging,
	}
}

// Tracer returns the tracing settings for the named service.
func (c *Config) Tracer(serviceName string) observability.TracerConfig {
	return observability.TracerConfig{
		ServiceName: serviceName,
		Endpoint:    c.OTELEndpoint,
		SampleRatio: c.OTELSampleRatio,
	}
}

// ObjectStore returns the MinIO connection settings.
func (c *Config) ObjectStore() objectstore.Config {
	return objectstore.Config{
		Endpoint:  c.MinIOEndpoint,
		AccessKey: c.MinIOAccessKey,
		SecretKey: c.MinIOSecretKey,
		UseSSL:    c.MinIOUseSSL,
		Region:    c.MinIORegion,
	}
}
