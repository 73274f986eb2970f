package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"productory/internal/objectstore"
	"productory/internal/storagepath"
	"productory/internal/store"
	"productory/internal/worker/provider"
)

// Transcript is the document stored for every finished transcription.
// Summary jobs read it back by transcription ID.
type Transcript struct {
	TranscriptionID string  `json:"transcriptionId"`
	FileID          string  `json:"fileId"`
	Text            string  `json:"text"`
	Language        string  `json:"language,omitempty"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// TranscriptKey is the object key of a user's transcript.
func TranscriptKey(userID, transcriptionID string) string {
	return fmt.Sprintf("transcripts/%s/%s.json", userID, transcriptionID)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent marks err as not worth retrying.
func permanent(err error) error { return &permanentError{err: err} }

func isPermanent(err error) bool {
	var pe *permanentError
	var se *storagepath.Error
	switch {
	case errors.As(err, &pe), errors.As(err, &se):
		return true
	case errors.Is(err, objectstore.ErrNotFound):
		return true
	}
	return provider.IsPermanent(err)
}

// audioKey resolves a payload file reference to its canonical object key.
// A bare file name is placed under the job owner's audio prefix; a path must belong to the owner.
func (a *Agent) audioKey(userID, fileID string) (string, error) {
	if !strings.Contains(fileID, "/") {
		return a.paths.AudioPath(userID, fileID)
	}

	key, err := a.paths.NormalizePath(fileID)
	if err != nil {
		return "", err
	}
	parsed, err := a.paths.ParseFilePath(key)
	if err != nil {
		return "", err
	}
	if parsed.UserID != userID {
		return "", permanent(fmt.Errorf("file %s does not belong to user %s", fileID, userID))
	}
	return key, nil
}

// audioContentType reports the content type the upload was stored with,
// falling back to the file extension.
func (a *Agent) audioContentType(ctx context.Context, bucket, key string) string {
	objects, err := a.objects.List(ctx, bucket, key)
	if err == nil {
		for _, obj := range objects {
			if obj.Key == key && obj.ContentType != "" {
				return obj.ContentType
			}
		}
	}
	return mime.TypeByExtension(path.Ext(key))
}

func (a *Agent) transcribe(ctx context.Context, job *store.Job, p store.TranscriptionPayload) (store.Result, error) {
	key, err := a.audioKey(job.UserID, p.FileID)
	if err != nil {
		return nil, err
	}
	bucket := a.paths.Config().DefaultBucket

	audioURL, err := storagepath.WithRetry(ctx, a.paths, func(ctx context.Context) (string, error) {
		return a.objects.PresignedGetURL(ctx, bucket, key, a.config.URLExpiry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audio URL: %w", err)
	}

	format := a.paths.OptimalTranscriptionFormat()
	resp, err := a.provider.Transcribe(ctx, provider.TranscribeRequest{
		AudioURL:         audioURL,
		ContentType:      a.audioContentType(ctx, bucket, key),
		TargetFormat:     format.Format,
		TargetSampleRate: format.SampleRate,
		TargetChannels:   format.Channels,
		Language:         p.Options.Language,
		Model:            p.Options.Model,
		Timestamps:       p.Options.Timestamps,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	doc, err := json.Marshal(Transcript{
		TranscriptionID: p.TranscriptionID,
		FileID:          key,
		Text:            resp.Text,
		Language:        resp.Language,
		DurationSeconds: resp.DurationSeconds,
	})
	if err != nil {
		return nil, permanent(err)
	}

	transcriptKey := TranscriptKey(job.UserID, p.TranscriptionID)
	_, err = storagepath.WithRetry(ctx, a.paths, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.objects.Put(ctx, bucket, transcriptKey, bytes.NewReader(doc), int64(len(doc)), "application/json")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store transcript: %w", err)
	}
	a.queue.AddJobLog(ctx, job.ID, fmt.Sprintf("Transcript stored at %s", transcriptKey), store.LogLevelInfo)

	return store.TranscriptionResult{
		Success:         true,
		TranscriptionID: p.TranscriptionID,
		Text:            resp.Text,
		Language:        resp.Language,
		DurationSeconds: resp.DurationSeconds,
	}, nil
}

func (a *Agent) summarize(ctx context.Context, job *store.Job, p store.SummaryPayload) (store.Result, error) {
	bucket := a.paths.Config().DefaultBucket
	key := TranscriptKey(job.UserID, p.TranscriptionID)

	transcript, err := storagepath.WithRetry(ctx, a.paths, func(ctx context.Context) (*Transcript, error) {
		rc, err := a.objects.Get(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		var t Transcript
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, permanent(fmt.Errorf("corrupt transcript %s: %w", key, err))
		}
		return &t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	req := provider.SummarizeRequest{TranscriptionID: p.TranscriptionID, Text: transcript.Text}
	if p.Options != nil {
		req.Style = p.Options.Style
		req.MaxLength = p.Options.MaxLength
	}

	resp, err := a.provider.Summarize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("summarization failed: %w", err)
	}

	return store.SummaryResult{
		Success:         true,
		TranscriptionID: p.TranscriptionID,
		Summary:         resp.Summary,
	}, nil
}
