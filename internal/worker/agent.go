// Package worker contains the worker-specific logic for job execution.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"productory/internal/objectstore"
	"productory/internal/storagepath"
	"productory/internal/store"
	"productory/internal/worker/provider"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// AgentConfig holds configuration for the worker agent.
type AgentConfig struct {
	ID            string
	Concurrency   int
	PollInterval  time.Duration
	MaxBackoff    time.Duration // Maximum backoff when queue is empty (default: 30s)
	JobTimeout    time.Duration // Upper bound for one attempt (default: 30m)
	RetryBackoff  time.Duration // How long a job stays in retrying before it is pending again (default: 30s)
	SweepInterval time.Duration // How often retrying jobs are requeued (default: 10s)
	StaleAfter    time.Duration // Processing jobs untouched this long are reclaimed (default: JobTimeout + 1m)
	URLExpiry     time.Duration // Lifetime of presigned audio URLs handed to the provider (default: 1h)
}

// Queue is the part of jobqueue.ServiceQueue the agent drives.
type Queue interface {
	ClaimNextJob(ctx context.Context) (*store.Job, error)
	IncrementJobAttempts(ctx context.Context, id uuid.UUID) (*store.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status store.JobStatus, result store.Result, errorMessage *string) (*store.Job, error)
	AddJobLog(ctx context.Context, jobID uuid.UUID, message string, level store.LogLevel) bool
	RequeueRetryingJobs(ctx context.Context, backoff time.Duration) (int64, error)
	RecoverStaleJobs(ctx context.Context, timeout time.Duration) (int64, error)
}

// Agent is the main worker agent that runs the pull-loop for job execution.
type Agent struct {
	queue    Queue
	provider provider.Transcriber
	objects  objectstore.Store
	paths    *storagepath.Util
	config   AgentConfig
	logger   *slog.Logger
	metrics  agentMetrics
	done     chan struct{}
}

type agentMetrics struct {
	processed metric.Int64Counter
	duration  metric.Float64Histogram
	requeued  metric.Int64Counter
	recovered metric.Int64Counter
}

func newAgentMetrics() agentMetrics {
	meter := otel.Meter("productory/worker")
	// Instrument creation only fails on invalid names; the no-op fallbacks keep the agent usable.
	processed, _ := meter.Int64Counter("productory_jobs_processed_total",
		metric.WithDescription("Job attempts finished by the worker, by job type and outcome"))
	duration, _ := meter.Float64Histogram("productory_job_duration_seconds",
		metric.WithDescription("Wall time of one job attempt"), metric.WithUnit("s"))
	requeued, _ := meter.Int64Counter("productory_jobs_requeued_total",
		metric.WithDescription("Retrying jobs moved back to pending"))
	recovered, _ := meter.Int64Counter("productory_jobs_recovered_total",
		metric.WithDescription("Stale processing jobs reclaimed by the sweeper"))
	return agentMetrics{processed: processed, duration: duration, requeued: requeued, recovered: recovered}
}

// New creates a new worker agent.
func New(q Queue, p provider.Transcriber, objects objectstore.Store, paths *storagepath.Util, config AgentConfig, logger *slog.Logger) *Agent {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}

	if config.PollInterval <= 0 {
		config.PollInterval = 1 * time.Second
	}

	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}

	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Minute
	}

	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 30 * time.Second
	}

	if config.SweepInterval <= 0 {
		config.SweepInterval = 10 * time.Second
	}

	// An attempt can never outlive JobTimeout, so anything older was abandoned.
	if config.StaleAfter <= config.JobTimeout {
		config.StaleAfter = config.JobTimeout + time.Minute
	}

	if config.URLExpiry <= 0 {
		config.URLExpiry = time.Hour
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		queue:    q,
		provider: p,
		objects:  objects,
		paths:    paths,
		config:   config,
		logger:   logger.With("component", "worker", "worker_id", config.ID),
		metrics:  newAgentMetrics(),
		done:     make(chan struct{}),
	}
}

// Run starts the main pull-loop. It blocks until the context is cancelled.
// On SIGTERM, it stops claiming new work and allows in-flight jobs to finish.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("agent starting", "concurrency", a.config.Concurrency)

	// Semaphore to limit concurrency
	sem := make(chan struct{}, a.config.Concurrency)
	var wg sync.WaitGroup

	// Channel to signal when a slot becomes available (adaptive polling)
	pollNow := make(chan struct{}, 1)

	// Current backoff duration (increases on empty queue, resets on work found)
	currentBackoff := a.config.PollInterval

	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
			// Already a poll pending
		}
	}

	var sweeper sync.WaitGroup
	sweeper.Add(1)
	go func() {
		defer sweeper.Done()
		a.runSweeper(ctx, triggerPoll)
	}()

	// Initial poll
	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("context cancelled, waiting for running jobs to finish")
			wg.Wait()
			sweeper.Wait()
			close(a.done)
			return ctx.Err()

		case <-time.After(currentBackoff):
			triggerPoll()

		case <-pollNow:
			availableSlots := a.config.Concurrency - len(sem)
			if availableSlots <= 0 {
				continue
			}

			claimed := 0
			for claimed < availableSlots {
				job, err := a.queue.ClaimNextJob(ctx)
				if err != nil {
					a.logger.Error("claim failed", "error", err)
					break
				}
				if job == nil {
					break
				}
				claimed++

				// Acquire semaphore slot
				sem <- struct{}{}

				wg.Add(1)
				go func(job *store.Job) {
					defer wg.Done()
					defer func() {
						<-sem
						// Signal that a slot is now available - trigger immediate re-poll
						triggerPoll()
					}()
					a.processJob(ctx, job)
				}(job)
			}

			if claimed == 0 {
				// Empty queue - increase backoff (exponential, capped at MaxBackoff)
				currentBackoff = currentBackoff * 2
				if currentBackoff > a.config.MaxBackoff {
					currentBackoff = a.config.MaxBackoff
				}
				continue
			}

			// Found work - reset backoff to minimum
			currentBackoff = a.config.PollInterval
			a.logger.Debug("claimed jobs", "count", claimed)
		}
	}
}

// Done returns a channel that is closed when the agent has fully stopped.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// runSweeper periodically reclaims abandoned processing jobs and returns retrying
// jobs whose backoff has elapsed to pending.
func (a *Agent) runSweeper(ctx context.Context, onRequeue func()) {
	ticker := time.NewTicker(a.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep(ctx, onRequeue)
		}
	}
}

func (a *Agent) sweep(ctx context.Context, onRequeue func()) {
	if n, err := a.queue.RecoverStaleJobs(ctx, a.config.StaleAfter); err != nil {
		if ctx.Err() == nil {
			a.logger.Error("recover stale jobs failed", "error", err)
		}
	} else if n > 0 {
		a.metrics.recovered.Add(ctx, n)
		a.logger.Warn("recovered stale processing jobs", "count", n, "stale_after", a.config.StaleAfter)
	}

	n, err := a.queue.RequeueRetryingJobs(ctx, a.config.RetryBackoff)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Error("requeue retrying jobs failed", "error", err)
		}
		return
	}
	if n > 0 {
		a.metrics.requeued.Add(ctx, n)
		a.logger.Info("requeued retrying jobs", "count", n)
		onRequeue()
	}
}

// processJob runs one attempt of a job that has already been claimed.
func (a *Agent) processJob(ctx context.Context, job *store.Job) {
	// The attempt keeps running through shutdown so in-flight work can drain.
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.JobTimeout)
	defer cancel()

	tracer := otel.Tracer("worker-agent")
	spanCtx, span := tracer.Start(jobCtx, "process_job",
		trace.WithAttributes(
			attribute.String("job.id", job.ID.String()),
			attribute.String("job.type", string(job.JobType)),
			attribute.String("user.id", job.UserID),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	logger := a.logger.With("job_id", job.ID, "job_type", job.JobType)
	start := time.Now()

	claimed := job
	job, err := a.queue.IncrementJobAttempts(spanCtx, claimed.ID)
	if err != nil {
		span.RecordError(err)
		logger.Error("failed to record attempt", "error", err)
		// Hand the job back rather than leave it claimed; the stale sweep covers a second failure.
		msg := fmt.Sprintf("failed to record attempt: %v", err)
		if _, uerr := a.queue.UpdateJobStatus(spanCtx, claimed.ID, store.JobStatusRetrying, nil, &msg); uerr != nil {
			logger.Error("failed to release job", "error", uerr)
		}
		return
	}
	span.SetAttributes(attribute.Int("job.attempt", job.Attempts))

	a.queue.AddJobLog(spanCtx, job.ID,
		fmt.Sprintf("Attempt %d of %d started on worker %s", job.Attempts, job.MaxAttempts, a.config.ID), store.LogLevelInfo)
	logger.Info("processing job", "attempt", job.Attempts, "max_attempts", job.MaxAttempts)

	result, err := a.execute(spanCtx, job)

	outcome := a.finish(spanCtx, job, result, err, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("job.outcome", outcome))

	attrs := metric.WithAttributes(
		attribute.String("job_type", string(job.JobType)),
		attribute.String("outcome", outcome),
	)
	a.metrics.processed.Add(spanCtx, 1, attrs)
	a.metrics.duration.Record(spanCtx, time.Since(start).Seconds(), attrs)
}

// execute dispatches on the payload variant.
func (a *Agent) execute(ctx context.Context, job *store.Job) (store.Result, error) {
	switch p := job.Payload.(type) {
	case store.TranscriptionPayload:
		return a.transcribe(ctx, job, p)
	case store.SummaryPayload:
		return a.summarize(ctx, job, p)
	default:
		return nil, permanent(fmt.Errorf("payload %T: %w", job.Payload, store.ErrUnknownJobType))
	}
}

// finish records the outcome of an attempt and returns its metric label.
func (a *Agent) finish(ctx context.Context, job *store.Job, result store.Result, runErr error, logger *slog.Logger) string {
	if runErr == nil {
		if _, err := a.queue.UpdateJobStatus(ctx, job.ID, store.JobStatusCompleted, result, nil); err != nil {
			logger.Error("failed to mark job completed", "error", err)
			return "error"
		}
		a.queue.AddJobLog(ctx, job.ID, "Job completed", store.LogLevelInfo)
		logger.Info("job completed")
		return "completed"
	}

	msg := runErr.Error()
	if isPermanent(runErr) || job.Attempts >= job.MaxAttempts {
		if _, err := a.queue.UpdateJobStatus(ctx, job.ID, store.JobStatusFailed, nil, &msg); err != nil {
			logger.Error("failed to mark job failed", "error", err)
			return "error"
		}
		a.queue.AddJobLog(ctx, job.ID, fmt.Sprintf("Job failed: %s", msg), store.LogLevelError)
		logger.Warn("job failed", "attempt", job.Attempts, "error", runErr)
		return "failed"
	}

	if _, err := a.queue.UpdateJobStatus(ctx, job.ID, store.JobStatusRetrying, nil, &msg); err != nil {
		logger.Error("failed to mark job retrying", "error", err)
		return "error"
	}
	a.queue.AddJobLog(ctx, job.ID,
		fmt.Sprintf("Attempt %d failed, will retry: %s", job.Attempts, msg), store.LogLevelWarning)
	logger.Warn("job attempt failed, retrying", "attempt", job.Attempts, "error", runErr)
	return "retrying"
}
