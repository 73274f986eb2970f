package cmd

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"productory/pkg/api"
)

func TestFilesUpload(t *testing.T) {
	local := filepath.Join(t.TempDir(), "interview.wav")
	if err := os.WriteFile(local, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}

	server := jobServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/files" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("expected multipart body, got %s", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(api.FileResponse{
			Name:              "interview_x.wav",
			Path:              "audio/user-123/interview_x.wav",
			TranscriptionPath: "audio/user-123/transcription/interview_x.wav",
		})
	})

	out, err := runCLI(t, server.URL, "test-token", "files", "upload", local)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"File uploaded!", "Name: interview_x.wav", "Transcription: audio/user-123/transcription/interview_x.wav"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q, got: %s", want, out)
		}
	}
}

func TestFilesUpload_MissingLocalFile(t *testing.T) {
	server := jobServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
	})

	out, err := runCLI(t, server.URL, "test-token", "files", "upload", filepath.Join(t.TempDir(), "nope.mp3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Upload failed: failed to open") {
		t.Errorf("expected open error, got: %s", out)
	}
}

func TestFilesList(t *testing.T) {
	tests := []struct {
		name  string
		files []api.FileResponse
		want  []string
	}{
		{"empty", nil, []string{"No files found."}},
		{
			"table",
			[]api.FileResponse{
				{Name: "a.mp3", Size: 1024, UploadedAt: time.Now().Add(-2 * time.Hour)},
				{Name: "b.wav", Size: 2048, UploadedAt: time.Now()},
			},
			[]string{"NAME", "a.mp3", "1024", "2h ago", "b.wav"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jobServer(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(api.ListFilesResponse{Files: tt.files})
			})

			out, err := runCLI(t, server.URL, "test-token", "files", "list")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q, got: %s", want, out)
				}
			}
		})
	}
}

func TestFilesURLs(t *testing.T) {
	server := jobServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/a.mp3/urls" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(api.FileURLsResponse{
			Path:         "audio/user-123/a.mp3",
			StoragePath:  "audio-files/audio/user-123/a.mp3",
			PublicURL:    "https://project.example.co/storage/v1/object/public/audio-files/audio/user-123/a.mp3",
			DownloadURL:  "https://project.example.co/storage/v1/object/download/audio-files/audio/user-123/a.mp3",
			PresignedURL: "https://minio/signed",
		})
	})

	out, err := runCLI(t, server.URL, "test-token", "files", "urls", "a.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"audio-files/audio/user-123/a.mp3", "/object/public/", "/object/download/", "https://minio/signed"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q, got: %s", want, out)
		}
	}
}

func TestFilesDelete(t *testing.T) {
	tests := []struct {
		name   string
		alias  string
		status int
		want   string
	}{
		{"deleted", "rm", http.StatusNoContent, "Deleted a.mp3"},
		{"alias", "delete", http.StatusNoContent, "Deleted a.mp3"},
		{"missing", "rm", http.StatusNotFound, "Delete failed (404)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jobServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete || r.URL.Path != "/files/a.mp3" {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
			})

			out, err := runCLI(t, server.URL, "test-token", "files", tt.alias, "a.mp3")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q, got: %s", tt.want, out)
			}
		})
	}
}

func TestJobsCommand(t *testing.T) {
	var query string
	server := jobServer(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("status")
		json.NewEncoder(w).Encode(api.ListJobsResponse{Jobs: []api.JobResponse{
			{ID: "job-1", JobType: "transcription", Status: "failed", Priority: 50, Attempts: 3, MaxAttempts: 3, CreatedAt: time.Now()},
		}})
	})

	out, err := runCLI(t, server.URL, "test-token", "jobs", "--status", "failed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query != "failed" {
		t.Errorf("expected status filter failed, got %q", query)
	}
	for _, want := range []string{"ID", "STATUS", "job-1", "transcription", "3/3"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q, got: %s", want, out)
		}
	}
}

func TestJobsCommand_Empty(t *testing.T) {
	server := jobServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("expected no query, got %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(api.ListJobsResponse{})
	})

	out, err := runCLI(t, server.URL, "test-token", "jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No jobs found.") {
		t.Errorf("expected empty message, got: %s", out)
	}
}
