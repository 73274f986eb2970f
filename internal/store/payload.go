package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// JobType discriminates job payloads and results.
type JobType string

const (
	JobTypeTranscription JobType = "transcription"
	JobTypeAISummary     JobType = "ai_summary"
)

// ErrUnknownJobType is returned when a payload or result carries an unrecognised discriminant.
var ErrUnknownJobType = errors.New("unknown job type")

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	return t == JobTypeTranscription || t == JobTypeAISummary
}

// Payload is the input of a job. Implementations are TranscriptionPayload and SummaryPayload.
type Payload interface {
	JobType() JobType
	isPayload()
}

// Result is the output of a finished job. Implementations are TranscriptionResult and SummaryResult.
type Result interface {
	JobType() JobType
	isResult()
}

type TranscriptionOptions struct {
	Language   string `json:"language,omitempty"`
	Model      string `json:"model,omitempty"`
	Timestamps bool   `json:"timestamps,omitempty"`
}

type TranscriptionPayload struct {
	FileID          string               `json:"fileId"`
	TranscriptionID string               `json:"transcriptionId"`
	Options         TranscriptionOptions `json:"options"`
}

type SummaryOptions struct {
	Style     string `json:"style,omitempty"`
	MaxLength int    `json:"maxLength,omitempty"`
}

type SummaryPayload struct {
	FileID          string          `json:"fileId"`
	TranscriptionID string          `json:"transcriptionId"`
	Options         *SummaryOptions `json:"options,omitempty"`
}

type TranscriptionResult struct {
	Success         bool    `json:"success"`
	TranscriptionID string  `json:"transcriptionId"`
	Text            string  `json:"text,omitempty"`
	Language        string  `json:"language,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

type SummaryResult struct {
	Success         bool   `json:"success"`
	TranscriptionID string `json:"transcriptionId"`
	Summary         string `json:"summary,omitempty"`
}

func (TranscriptionPayload) JobType() JobType { return JobTypeTranscription }
func (SummaryPayload) JobType() JobType       { return JobTypeAISummary }
func (TranscriptionResult) JobType() JobType  { return JobTypeTranscription }
func (SummaryResult) JobType() JobType        { return JobTypeAISummary }

func (TranscriptionPayload) isPayload() {}
func (SummaryPayload) isPayload()       {}
func (TranscriptionResult) isResult()   {}
func (SummaryResult) isResult()         {}

// The wire form carries an explicit "type" discriminant next to the fields.

func (p TranscriptionPayload) MarshalJSON() ([]byte, error) {
	type plain TranscriptionPayload
	return json.Marshal(struct {
		Type JobType `json:"type"`
		plain
	}{p.JobType(), plain(p)})
}

func (p SummaryPayload) MarshalJSON() ([]byte, error) {
	type plain SummaryPayload
	return json.Marshal(struct {
		Type JobType `json:"type"`
		plain
	}{p.JobType(), plain(p)})
}

func (r TranscriptionResult) MarshalJSON() ([]byte, error) {
	type plain TranscriptionResult
	return json.Marshal(struct {
		Type JobType `json:"type"`
		plain
	}{r.JobType(), plain(r)})
}

func (r SummaryResult) MarshalJSON() ([]byte, error) {
	type plain SummaryResult
	return json.Marshal(struct {
		Type JobType `json:"type"`
		plain
	}{r.JobType(), plain(r)})
}

type discriminant struct {
	Type JobType `json:"type"`
}

// DecodePayload parses a payload using its "type" field.
func DecodePayload(raw []byte) (Payload, error) {
	var d discriminant
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	switch d.Type {
	case JobTypeTranscription:
		var p TranscriptionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode transcription payload: %w", err)
		}
		return p, nil
	case JobTypeAISummary:
		var p SummaryPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode summary payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("payload type %q: %w", d.Type, ErrUnknownJobType)
	}
}

// DecodeResult parses a result using its "type" field. Empty input yields a nil Result.
func DecodeResult(raw []byte) (Result, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var d discriminant
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	switch d.Type {
	case JobTypeTranscription:
		var r TranscriptionResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode transcription result: %w", err)
		}
		return r, nil
	case JobTypeAISummary:
		var r SummaryResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode summary result: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("result type %q: %w", d.Type, ErrUnknownJobType)
	}
}

// DecodePayloadAs parses a payload that has no discriminant, trusting jobType.
// Used for API requests where the job type is a sibling field.
func DecodePayloadAs(jobType JobType, raw []byte) (Payload, error) {
	switch jobType {
	case JobTypeTranscription:
		var p TranscriptionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode transcription payload: %w", err)
		}
		return p, nil
	case JobTypeAISummary:
		var p SummaryPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode summary payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("job type %q: %w", jobType, ErrUnknownJobType)
	}
}

// ValidatePayload checks that p matches jobType and carries the required identifiers.
func ValidatePayload(jobType JobType, p Payload) error {
	if p == nil {
		return errors.New("payload is required")
	}
	if p.JobType() != jobType {
		return fmt.Errorf("payload type %q does not match job type %q", p.JobType(), jobType)
	}

	switch v := p.(type) {
	case TranscriptionPayload:
		if v.FileID == "" || v.TranscriptionID == "" {
			return errors.New("transcription payload requires fileId and transcriptionId")
		}
	case SummaryPayload:
		if v.FileID == "" || v.TranscriptionID == "" {
			return errors.New("summary payload requires fileId and transcriptionId")
		}
	default:
		return fmt.Errorf("payload %T: %w", p, ErrUnknownJobType)
	}
	return nil
}
