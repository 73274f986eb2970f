package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"productory/internal/controller/middleware"
	"productory/internal/jobqueue"
	"productory/internal/objectstore"
	"productory/internal/storagepath"
	"productory/internal/store"
	"productory/internal/store/memory"

	"github.com/google/uuid"
)

const testUserID = "user-123"

// Mock Store
type mockStore struct {
	*memory.Store

	// Job Hooks
	createJobErr error
	getJobErr    error
	listJobsErr  error
	getLogsErr   error
	pingErr      error

	// User Hooks
	createUserErr error

	// Spies (to verify arguments passed by handlers)
	capturedStatus *store.JobStatus
	capturedHash   string
}

func newMockStore() *mockStore {
	return &mockStore{Store: memory.New()}
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) CreateJob(ctx context.Context, job *store.Job) error {
	if m.createJobErr != nil {
		return m.createJobErr
	}
	return m.Store.CreateJob(ctx, job)
}

func (m *mockStore) GetJob(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	if m.getJobErr != nil {
		return nil, m.getJobErr
	}
	return m.Store.GetJob(ctx, id)
}

func (m *mockStore) ListUserJobs(ctx context.Context, userID string, status *store.JobStatus) ([]store.Job, error) {
	m.capturedStatus = status
	if m.listJobsErr != nil {
		return nil, m.listJobsErr
	}
	return m.Store.ListUserJobs(ctx, userID, status)
}

func (m *mockStore) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]store.JobLogEntry, error) {
	if m.getLogsErr != nil {
		return nil, m.getLogsErr
	}
	return m.Store.GetJobLogs(ctx, jobID)
}

func (m *mockStore) CreateUser(ctx context.Context, user *store.User, hashedKey string) error {
	m.capturedHash = hashedKey
	if m.createUserErr != nil {
		return m.createUserErr
	}
	return m.Store.CreateUser(ctx, user, hashedKey)
}

// flakyObjects fails the first putFailures Put calls.
type flakyObjects struct {
	*objectstore.Memory
	putFailures int32
	puts        atomic.Int32
	removeErr   error
}

func (f *flakyObjects) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	if f.puts.Add(1) <= f.putFailures {
		return errors.New("connection reset")
	}
	return f.Memory.Put(ctx, bucket, key, r, size, contentType)
}

func (f *flakyObjects) Remove(ctx context.Context, bucket, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.Memory.Remove(ctx, bucket, key)
}

type testEnv struct {
	h       *Handlers
	store   *mockStore
	objects *flakyObjects
	queue   *jobqueue.Queue
	paths   *storagepath.Util
}

func newTestEnv(t *testing.T, cfg HandlerConfig) *testEnv {
	t.Helper()

	paths, err := storagepath.New(storagepath.Config{
		DefaultBucket:   "audio-files",
		BaseURL:         "https://project.example.co",
		AudioPathPrefix: "audio",
		MaxRetries:      2,
		RetryDelay:      time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("storagepath.New: %v", err)
	}

	ms := newMockStore()
	objects := &flakyObjects{Memory: objectstore.NewMemory("http://objects.local")}
	queue := jobqueue.New(ms, nil)

	h := New(Dependencies{
		Jobs:    queue,
		Users:   ms,
		Objects: objects,
		Paths:   paths,
		Pinger:  ms,
	}, cfg)

	return &testEnv{h: h, store: ms, objects: objects, queue: queue, paths: paths}
}

// serve routes req through a mux so path values are populated.
func serve(pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

// asUser injects the authenticated user the way AuthMiddleware does.
func asUser(req *http.Request, userID string) *http.Request {
	ctx := middleware.NewContextWithUser(req.Context(), &store.User{ID: userID})
	return req.WithContext(ctx)
}

func (e *testEnv) seedJob(t *testing.T, userID string) *store.Job {
	t.Helper()
	job, err := e.queue.CreateJob(context.Background(), jobqueue.NewJob{
		JobType: store.JobTypeTranscription,
		Payload: store.TranscriptionPayload{FileID: "meeting.mp3", TranscriptionID: "tr-1"},
		UserID:  userID,
	})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}
