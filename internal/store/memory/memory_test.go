package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"productory/internal/store"

	"github.com/google/uuid"
)

var (
	_ store.JobStore    = (*Store)(nil)
	_ store.WorkerQueue = (*Store)(nil)
	_ store.UserStore   = (*Store)(nil)
)

func newJob(priority int, created time.Time) *store.Job {
	return &store.Job{
		ID:          uuid.New(),
		UserID:      "user1",
		JobType:     store.JobTypeTranscription,
		Status:      store.JobStatusPending,
		Priority:    priority,
		Payload:     store.TranscriptionPayload{FileID: "f", TranscriptionID: "t"},
		MaxAttempts: 3,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestClaimNextJob_Ordering(t *testing.T) {
	ctx := context.Background()
	m := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := newJob(0, base)
	b := newJob(10, base.Add(time.Second))
	c := newJob(10, base.Add(2*time.Second))
	for _, j := range []*store.Job{a, b, c} {
		if err := m.CreateJob(ctx, j); err != nil {
			t.Fatal(err)
		}
	}

	want := []uuid.UUID{b.ID, c.ID, a.ID}
	for i, id := range want {
		got, err := m.ClaimNextJob(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.ID != id {
			t.Fatalf("claim %d: got %v, want %v", i, got, id)
		}
		if got.StartedAt == nil {
			t.Errorf("claim %d: started_at not set", i)
		}
	}

	got, err := m.ClaimNextJob(ctx)
	if err != nil || got != nil {
		t.Errorf("expected empty queue, got %v, %v", got, err)
	}
}

func TestUpdateJobStatus_RejectsTerminal(t *testing.T) {
	ctx := context.Background()
	m := New()
	j := newJob(0, time.Now())
	_ = m.CreateJob(ctx, j)

	if _, err := m.UpdateJobStatus(ctx, j.ID, store.StatusUpdate{Status: store.JobStatusFailed}); err != nil {
		t.Fatal(err)
	}
	_, err := m.UpdateJobStatus(ctx, j.ID, store.StatusUpdate{Status: store.JobStatusProcessing})
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRequeueRetryingJobs_RespectsBackoff(t *testing.T) {
	ctx := context.Background()
	m := New()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	j := newJob(0, now)
	_ = m.CreateJob(ctx, j)
	_, _ = m.ClaimNextJob(ctx)
	if _, err := m.UpdateJobStatus(ctx, j.ID, store.StatusUpdate{Status: store.JobStatusRetrying}); err != nil {
		t.Fatal(err)
	}

	n, _ := m.RequeueRetryingJobs(ctx, time.Minute)
	if n != 0 {
		t.Errorf("requeued %d before backoff elapsed", n)
	}

	now = now.Add(2 * time.Minute)
	n, _ = m.RequeueRetryingJobs(ctx, time.Minute)
	if n != 1 {
		t.Fatalf("requeued %d, want 1", n)
	}
	got, _ := m.GetJob(ctx, j.ID)
	if got.Status != store.JobStatusPending {
		t.Errorf("got status %s, want pending", got.Status)
	}
}

func TestGetJob_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := New()
	j := newJob(0, time.Now())
	_ = m.CreateJob(ctx, j)
	_, _ = m.ClaimNextJob(ctx)

	got, _ := m.GetJob(ctx, j.ID)
	*got.StartedAt = time.Time{}
	got.Status = store.JobStatusCompleted

	again, _ := m.GetJob(ctx, j.ID)
	if again.Status != store.JobStatusProcessing || again.StartedAt.IsZero() {
		t.Error("stored job was mutated through returned copy")
	}
}

func TestAddJobLog_UnknownJob(t *testing.T) {
	m := New()
	err := m.AddJobLog(context.Background(), &store.JobLogEntry{JobID: uuid.New(), Message: "x", Level: store.LogLevelInfo})
	if !errors.Is(err, store.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestRecoverStaleJobs(t *testing.T) {
	ctx := context.Background()
	m := New()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	fresh := newJob(0, now)
	spent := newJob(0, now)
	spent.Attempts = spent.MaxAttempts
	_ = m.CreateJob(ctx, fresh)
	_ = m.CreateJob(ctx, spent)
	_, _ = m.ClaimNextJob(ctx)
	_, _ = m.ClaimNextJob(ctx)

	n, _ := m.RecoverStaleJobs(ctx, time.Hour)
	if n != 0 {
		t.Errorf("recovered %d jobs before the timeout", n)
	}

	now = now.Add(2 * time.Hour)
	n, err := m.RecoverStaleJobs(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("recovered %d, want 2", n)
	}

	tests := []struct {
		id            uuid.UUID
		want          store.JobStatus
		wantCompleted bool
	}{
		{fresh.ID, store.JobStatusRetrying, false},
		{spent.ID, store.JobStatusFailed, true},
	}
	for _, tt := range tests {
		got, _ := m.GetJob(ctx, tt.id)
		if got.Status != tt.want {
			t.Errorf("job %s: got status %s, want %s", tt.id, got.Status, tt.want)
		}
		if (got.CompletedAt != nil) != tt.wantCompleted {
			t.Errorf("job %s: completed_at = %v", tt.id, got.CompletedAt)
		}
		if got.ErrorMessage == nil || *got.ErrorMessage != store.StaleJobMessage {
			t.Errorf("job %s: error message = %v", tt.id, got.ErrorMessage)
		}
	}

	// Only processing jobs are touched.
	now = now.Add(2 * time.Hour)
	if n, _ := m.RecoverStaleJobs(ctx, time.Hour); n != 0 {
		t.Errorf("recovered %d non-processing jobs", n)
	}
}

func TestUpdateJobStatus_ResultOnlyOnTerminal(t *testing.T) {
	ctx := context.Background()
	m := New()
	j := newJob(0, time.Now())
	_ = m.CreateJob(ctx, j)
	_, _ = m.ClaimNextJob(ctx)

	early := store.TranscriptionResult{Success: true, Text: "partial"}
	got, err := m.UpdateJobStatus(ctx, j.ID, store.StatusUpdate{Status: store.JobStatusRetrying, Result: early})
	if err != nil {
		t.Fatal(err)
	}
	if got.Result != nil {
		t.Errorf("retrying job carries result %#v", got.Result)
	}

	_, _ = m.UpdateJobStatus(ctx, j.ID, store.StatusUpdate{Status: store.JobStatusPending})
	_, _ = m.ClaimNextJob(ctx)
	final := store.TranscriptionResult{Success: true, Text: "done"}
	got, err = m.UpdateJobStatus(ctx, j.ID, store.StatusUpdate{Status: store.JobStatusCompleted, Result: final})
	if err != nil {
		t.Fatal(err)
	}
	if got.Result != final {
		t.Errorf("got result %#v, want %#v", got.Result, final)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	m := New()
	if err := m.CreateUser(ctx, &store.User{ID: "u1", Email: "a@example.com"}, "hash1"); err != nil {
		t.Fatal(err)
	}

	err := m.CreateUser(ctx, &store.User{ID: "u2", Email: "a@example.com"}, "hash2")
	if !errors.Is(err, store.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}
