package storagepath

import (
	"fmt"
	"strings"
)

// CanonicalPath is the parsed form of a storage key.
// Prefix and UserID are empty when the path had too few segments to carry them.
type CanonicalPath struct {
	Prefix   string
	UserID   string
	FileName string
}

// TranscriptionFormat describes the audio format handed to the speech-to-text provider.
type TranscriptionFormat struct {
	Format     string `json:"format"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// 16 kHz mono PCM WAV.
var optimalFormat = TranscriptionFormat{Format: "wav", SampleRate: 16000, Channels: 1}

// AudioPath returns "{prefix}/{userID}/{fileName}".
func (u *Util) AudioPath(userID, fileName string) (string, error) {
	if userID == "" || fileName == "" {
		err := newError(CodePathConstruction, "user ID and file name are required to build an audio path",
			"userId", userID, "fileName", fileName)
		u.logger.Error("audio path construction failed", err.LogAttrs()...)
		return "", err
	}

	path := fmt.Sprintf("%s/%s/%s", u.cfg.AudioPathPrefix, userID, fileName)
	u.logger.Debug("built audio path", "path", path)
	return path, nil
}

// TranscriptionPath returns "{prefix}/{userID}/transcription/{base}.wav" where base is
// fileName with everything from the last dot removed.
func (u *Util) TranscriptionPath(userID, fileName string) (string, error) {
	if userID == "" || fileName == "" {
		err := newError(CodePathConstruction, "user ID and file name are required to build a transcription path",
			"userId", userID, "fileName", fileName)
		u.logger.Error("transcription path construction failed", err.LogAttrs()...)
		return "", err
	}

	path := fmt.Sprintf("%s/%s/transcription/%s.%s", u.cfg.AudioPathPrefix, userID, trimExtension(fileName), optimalFormat.Format)
	u.logger.Debug("built transcription path", "path", path)
	return path, nil
}

// OptimalTranscriptionFormat is the format every upload is converted to before transcription.
func (u *Util) OptimalTranscriptionFormat() TranscriptionFormat {
	return optimalFormat
}

// ParseFilePath splits path on "/". One segment yields only a file name, two yield
// user ID and file name, three or more yield prefix, user ID and file name; later
// segments are ignored.
func (u *Util) ParseFilePath(path string) (CanonicalPath, error) {
	if path == "" {
		return CanonicalPath{}, newError(CodeInvalidPath, "path is empty")
	}

	parts := strings.Split(path, "/")
	switch len(parts) {
	case 1:
		return CanonicalPath{FileName: parts[0]}, nil
	case 2:
		return CanonicalPath{UserID: parts[0], FileName: parts[1]}, nil
	default:
		return CanonicalPath{Prefix: parts[0], UserID: parts[1], FileName: parts[2]}, nil
	}
}

// NormalizePath rewrites path into the canonical audio layout. Paths already under the
// configured prefix are returned unchanged, so NormalizePath is idempotent.
func (u *Util) NormalizePath(path string) (string, error) {
	parsed, err := u.ParseFilePath(path)
	if err != nil {
		return "", err
	}
	if parsed.UserID == "" {
		err := newError(CodeInvalidPath, "cannot recover a user ID from path", "path", path)
		u.logger.Warn("path normalization failed", err.LogAttrs()...)
		return "", err
	}

	if parsed.Prefix == u.cfg.AudioPathPrefix {
		return path, nil
	}

	normalized, err := u.AudioPath(parsed.UserID, parsed.FileName)
	if err != nil {
		return "", err
	}
	u.logger.Info("normalized legacy path", "from", path, "to", normalized)
	return normalized, nil
}

// IsStandardPath reports whether path starts with the configured audio prefix.
func (u *Util) IsStandardPath(path string) bool {
	parsed, err := u.ParseFilePath(path)
	if err != nil {
		return false
	}
	return parsed.Prefix == u.cfg.AudioPathPrefix
}

func trimExtension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}
