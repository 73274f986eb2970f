// Package storagepath derives canonical object-store paths and URLs for uploaded audio.
//
// Every upload, rename, playback and delete code path builds its keys through a Util so
// that keys stay consistent across the object store.
package storagepath

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultAudioPathPrefix = "audio"
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = time.Second
)

// Config is validated once by New and never mutated afterwards.
type Config struct {
	DefaultBucket   string
	BaseURL         string
	AudioPathPrefix string
	MaxRetries      int
	RetryDelay      time.Duration
	EnableLogging   bool
}

// Util builds and parses storage paths for a single Config.
type Util struct {
	cfg    Config
	logger *slog.Logger

	now    func() time.Time
	random io.Reader
}

// New validates cfg and returns a Util. A nil logger disables logging regardless of cfg.EnableLogging.
func New(cfg Config, logger *slog.Logger) (*Util, error) {
	cfg.DefaultBucket = strings.TrimSpace(cfg.DefaultBucket)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	if cfg.DefaultBucket == "" {
		return nil, newError(CodeConfiguration, "default bucket is required", "field", "default_bucket")
	}
	if cfg.BaseURL == "" {
		return nil, newError(CodeMissingBaseURL, "base URL is required", "field", "base_url")
	}
	if !validBucketName(cfg.DefaultBucket) {
		return nil, newError(CodeInvalidBucket, "default bucket name is invalid", "bucket", cfg.DefaultBucket)
	}

	cfg.AudioPathPrefix = strings.Trim(cfg.AudioPathPrefix, "/")
	if cfg.AudioPathPrefix == "" {
		cfg.AudioPathPrefix = DefaultAudioPathPrefix
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	if logger == nil || !cfg.EnableLogging {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Util{
		cfg:    cfg,
		logger: logger.With("component", "storagepath"),
		now:    time.Now,
		random: randReader,
	}, nil
}

// Config returns a copy of the validated configuration.
func (u *Util) Config() Config {
	return u.cfg
}

// bucket names follow S3 rules loosely: lowercase letters, digits, dots and dashes.
func validBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
		default:
			return false
		}
	}
	return name[0] != '-' && name[0] != '.' && name[len(name)-1] != '-' && name[len(name)-1] != '.'
}
