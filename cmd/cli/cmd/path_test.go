package cmd

import (
	"regexp"
	"strings"
	"testing"
)

func TestPathCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			"audio",
			[]string{"path", "audio", "user-123", "meeting.mp3"},
			[]string{"audio/user-123/meeting.mp3"},
		},
		{
			"transcription",
			[]string{"path", "transcription", "user-123", "meeting.mp3"},
			[]string{"audio/user-123/transcription/meeting.wav"},
		},
		{
			"custom prefix",
			[]string{"path", "audio", "user-123", "a.mp3", "--prefix", "/recordings/"},
			[]string{"recordings/user-123/a.mp3"},
		},
		{
			"normalize",
			[]string{"path", "normalize", "user-123/a.mp3"},
			[]string{"audio/user-123/a.mp3"},
		},
		{
			"parse",
			[]string{"path", "parse", "audio/user-123/a.mp3"},
			[]string{"User:     user-123", "File:     a.mp3", "Standard: true"},
		},
		{
			"urls",
			[]string{"path", "urls", "audio/u/a.mp3", "--base-url", "https://project.example.co/"},
			[]string{
				"Storage:  audio-files/audio/u/a.mp3",
				"Public:   https://project.example.co/storage/v1/object/public/audio-files/audio/u/a.mp3",
				"Download: https://project.example.co/storage/v1/object/download/audio-files/audio/u/a.mp3",
			},
		},
		{
			"construction error",
			[]string{"path", "audio", "", "a.mp3"},
			[]string{"Error [PATH_CONSTRUCTION_ERROR]: There was an issue constructing the file path."},
		},
		{
			"missing base url",
			[]string{"path", "audio", "u", "a.mp3", "--base-url", ""},
			[]string{"Error [MISSING_BASE_URL]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, "", "", tt.args...)
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

func TestPathFilename(t *testing.T) {
	out, err := runCLI(t, "", "", "path", "filename", "My Meeting.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	re := regexp.MustCompile(`My-Meeting_\S+_[a-z0-9]{6}\.mp3`)
	if !re.MatchString(out) {
		t.Errorf("unexpected generated name: %s", out)
	}
}
