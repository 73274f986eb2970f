package storagepath

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

const (
	suffixLength   = 6
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	timestampFmt   = "2006-01-02T15:04:05.000Z"
)

var randReader io.Reader = rand.Reader

// GenerateFormattedFilename returns "{base}_{timestamp}_{random}.{ext}" for an uploaded file.
// The base and extension are restricted to [A-Za-z0-9-_]; the timestamp is ISO-8601 UTC with
// ':' and '.' replaced by '-'. Names without a dot get no extension.
func (u *Util) GenerateFormattedFilename(original string) (string, error) {
	if original == "" {
		return "", newError(CodeMissingFileName, "original file name is empty")
	}

	base, ext := original, ""
	if i := strings.LastIndex(original, "."); i >= 0 && i < len(original)-1 {
		base, ext = original[:i], original[i+1:]
	}

	base = sanitize(base)
	if base == "" {
		base = "file"
	}

	suffix, err := u.randomSuffix()
	if err != nil {
		return "", fmt.Errorf("generate filename suffix: %w", err)
	}

	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(u.now().UTC().Format(timestampFmt))

	name := fmt.Sprintf("%s_%s_%s", base, stamp, suffix)
	if ext = sanitize(ext); ext != "" {
		name += "." + ext
	}
	return name, nil
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (u *Util) randomSuffix() (string, error) {
	// 252 is the largest multiple of 36 below 256; rejecting above it keeps the draw uniform.
	const limit = 252

	out := make([]byte, 0, suffixLength)
	buf := make([]byte, suffixLength)
	for len(out) < suffixLength {
		chunk := buf[:suffixLength-len(out)]
		if _, err := io.ReadFull(u.random, chunk); err != nil {
			return "", err
		}
		for _, c := range chunk {
			if c < limit {
				out = append(out, suffixAlphabet[int(c)%len(suffixAlphabet)])
			}
		}
	}
	return string(out), nil
}
