// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"productory/internal/jobqueue"
	"productory/internal/logger"
	"productory/internal/objectstore"
	"productory/internal/storagepath"
	"productory/internal/store"
	"productory/pkg/api"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators shared by every handler.
type Dependencies struct {
	Jobs    *jobqueue.Queue
	Users   store.UserStore
	Objects objectstore.Store
	Paths   *storagepath.Util
	// Pinger may be nil, in which case Readyz always succeeds.
	Pinger Pinger
	Logger *slog.Logger
}

// HandlerConfig holds request limits and defaults.
type HandlerConfig struct {
	UploadMaxBytes   int64
	PresignExpiry    time.Duration
	DefaultRateLimit int
	DefaultRateBurst int
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	jobs    *jobqueue.Queue
	users   store.UserStore
	objects objectstore.Store
	paths   *storagepath.Util
	pinger  Pinger
	logger  *slog.Logger
	cfg     HandlerConfig
}

// New creates a new Handlers instance.
func New(d Dependencies, cfg HandlerConfig) *Handlers {
	log := d.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 100 << 20
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = time.Hour
	}
	return &Handlers{
		jobs:    d.Jobs,
		users:   d.Users,
		objects: d.Objects,
		paths:   d.Paths,
		pinger:  d.Pinger,
		logger:  log,
		cfg:     cfg,
	}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// storageError answers with the user-facing text for a storage path failure.
// Misconfiguration is the server's fault; everything else is a bad request.
func (h *Handlers) storageError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	code := ""
	var se *storagepath.Error
	if errors.As(err, &se) {
		code = string(se.Code)
		switch se.Code {
		case storagepath.CodeConfiguration, storagepath.CodeMissingBaseURL:
			status = http.StatusInternalServerError
		}
	}
	h.log(r).Warn("storage path error", "error", err, "code", code)

	h.respondJson(w, status, api.ErrorResponse{
		Error:   storagepath.UserFriendlyErrorMessage(err),
		Code:    code,
		Details: strconv.Itoa(status),
	})
}

func (h *Handlers) log(r *http.Request) *slog.Logger {
	return logger.FromContext(r.Context(), h.logger)
}
