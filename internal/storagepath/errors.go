package storagepath

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code is a stable identifier for a storage path failure.
type Code string

const (
	CodePathConstruction Code = "PATH_CONSTRUCTION_ERROR"
	CodeInvalidPath      Code = "INVALID_PATH_ERROR"
	CodeConfiguration    Code = "CONFIGURATION_ERROR"
	CodeMissingUserID    Code = "MISSING_USER_ID"
	CodeMissingFileName  Code = "MISSING_FILE_NAME"
	CodeInvalidBucket    Code = "INVALID_BUCKET_NAME"
	CodeMissingBaseURL   Code = "MISSING_BASE_URL"
)

// Sentinels for use with errors.Is. Matching is by code only.
var (
	ErrPathConstruction = &Error{Code: CodePathConstruction}
	ErrInvalidPath      = &Error{Code: CodeInvalidPath}
	ErrConfiguration    = &Error{Code: CodeConfiguration}
	ErrMissingUserID    = &Error{Code: CodeMissingUserID}
	ErrMissingFileName  = &Error{Code: CodeMissingFileName}
	ErrInvalidBucket    = &Error{Code: CodeInvalidBucket}
	ErrMissingBaseURL   = &Error{Code: CodeMissingBaseURL}
)

var friendlyMessages = map[Code]string{
	CodePathConstruction: "There was an issue constructing the file path.",
	CodeInvalidPath:      "The file path is invalid or malformed.",
	CodeConfiguration:    "There is a storage system configuration issue.",
	CodeMissingUserID:    "A user ID is required.",
	CodeMissingFileName:  "A file name is required.",
	CodeInvalidBucket:    "The bucket name is invalid.",
	CodeMissingBaseURL:   "The storage base URL is not configured.",
}

const genericErrorMessage = "An unexpected error occurred while accessing storage."

// Error is returned by every validating operation in this package.
// Context carries the offending inputs for structured logging.
type Error struct {
	Code    Code
	Message string
	Context map[string]any
}

func newError(code Code, message string, kv ...any) *Error {
	e := &Error{Code: code, Message: message}
	if len(kv) > 0 {
		e.Context = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Context[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	return e
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// LogAttrs flattens the error into key/value pairs for slog.
func (e *Error) LogAttrs() []any {
	attrs := []any{"code", string(e.Code)}
	for k, v := range e.Context {
		attrs = append(attrs, k, v)
	}
	return attrs
}

// UserFriendlyErrorMessage maps a storage error to a sentence suitable for end users.
// Errors without a known code fall back to their own message; nil falls back to a generic sentence.
func UserFriendlyErrorMessage(err error) string {
	if err == nil {
		return genericErrorMessage
	}

	var se *Error
	if errors.As(err, &se) {
		if msg, ok := friendlyMessages[se.Code]; ok {
			return msg
		}
		if se.Message != "" {
			return se.Message
		}
	}

	return err.Error()
}
