package store

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusPending, JobStatusProcessing, true},
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusRetrying, true},
		{JobStatusProcessing, JobStatusPending, false},
		{JobStatusRetrying, JobStatusPending, true},
		{JobStatusRetrying, JobStatusFailed, true},
		{JobStatusCompleted, JobStatusPending, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusFailed, JobStatusProcessing, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range AllStatuses {
		want := s == JobStatusCompleted || s == JobStatusFailed
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, s.Terminal(), want)
		}
		if s.Terminal() && len(transitions[s]) != 0 {
			t.Errorf("terminal status %s has outgoing transitions", s)
		}
	}
}

func TestSourcesFor(t *testing.T) {
	got := SourcesFor(JobStatusFailed)
	want := []JobStatus{JobStatusPending, JobStatusProcessing, JobStatusRetrying}

	if len(got) != len(want) {
		t.Fatalf("SourcesFor(failed) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SourcesFor(failed)[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPayloadWireFormat(t *testing.T) {
	raw, err := json.Marshal(TranscriptionPayload{FileID: "f1", TranscriptionID: "t1"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(raw), `"type":"transcription"`) {
		t.Errorf("expected discriminant in %s", raw)
	}

	decoded, err := DecodePayload(raw)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	p, ok := decoded.(TranscriptionPayload)
	if !ok {
		t.Fatalf("expected TranscriptionPayload, got %T", decoded)
	}
	if p.FileID != "f1" || p.TranscriptionID != "t1" {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestDecodePayload_Summary(t *testing.T) {
	decoded, err := DecodePayload([]byte(`{"type":"ai_summary","fileId":"f1","transcriptionId":"t1","options":{"style":"bullets"}}`))
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	p, ok := decoded.(SummaryPayload)
	if !ok {
		t.Fatalf("expected SummaryPayload, got %T", decoded)
	}
	if p.Options == nil || p.Options.Style != "bullets" {
		t.Errorf("unexpected options %+v", p.Options)
	}
}

func TestDecodePayload_UnknownType(t *testing.T) {
	_, err := DecodePayload([]byte(`{"type":"translation","fileId":"f1"}`))
	if !errors.Is(err, ErrUnknownJobType) {
		t.Errorf("expected ErrUnknownJobType, got %v", err)
	}

	_, err = DecodePayload([]byte(`{"fileId":"f1"}`))
	if !errors.Is(err, ErrUnknownJobType) {
		t.Errorf("expected ErrUnknownJobType for missing discriminant, got %v", err)
	}
}

func TestDecodeResult(t *testing.T) {
	r, err := DecodeResult(nil)
	if err != nil || r != nil {
		t.Errorf("DecodeResult(nil) = %v, %v; want nil, nil", r, err)
	}

	raw, _ := json.Marshal(TranscriptionResult{Success: true, TranscriptionID: "t1", Text: "hello"})
	r, err = DecodeResult(raw)
	if err != nil {
		t.Fatalf("DecodeResult failed: %v", err)
	}
	tr, ok := r.(TranscriptionResult)
	if !ok || !tr.Success || tr.Text != "hello" {
		t.Errorf("unexpected result %#v", r)
	}
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		jobType JobType
		payload Payload
		wantErr bool
	}{
		{"valid transcription", JobTypeTranscription, TranscriptionPayload{FileID: "f", TranscriptionID: "t"}, false},
		{"valid summary", JobTypeAISummary, SummaryPayload{FileID: "f", TranscriptionID: "t"}, false},
		{"mismatch", JobTypeAISummary, TranscriptionPayload{FileID: "f", TranscriptionID: "t"}, true},
		{"missing ids", JobTypeTranscription, TranscriptionPayload{}, true},
		{"nil", JobTypeTranscription, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload(tt.jobType, tt.payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
