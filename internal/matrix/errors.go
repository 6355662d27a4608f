package matrix

import (
	"errors"
	"fmt"
	"time"
)

// Error is a structured error response from the Matrix homeserver. Callers
// use errors.As to extract the error code and HTTP status:
//
//	var matrixErr *matrix.Error
//	if errors.As(err, &matrixErr) && matrixErr.Code == matrix.ErrCodeUserInUse { ... }
type Error struct {
	// Code is the Matrix error code (e.g. "M_USER_IN_USE", "M_LIMIT_EXCEEDED").
	Code string `json:"errcode"`
	// Message is the human-readable description from the server.
	Message string `json:"error"`
	// RetryAfterMs is the server-provided wait hint on rate-limit responses.
	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Standard Matrix error codes used by this service.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeUserInUse     = "M_USER_IN_USE"
	ErrCodeRoomInUse     = "M_ROOM_IN_USE"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
)

// IsCode checks whether err is a *Error carrying the given Matrix error code.
func IsCode(err error, code string) bool {
	var matrixErr *Error
	return errors.As(err, &matrixErr) && matrixErr.Code == code
}

// IsRateLimited reports whether err is a rate-limit signal from the
// homeserver. This is the only error class the Executor retries.
func IsRateLimited(err error) bool {
	var matrixErr *Error
	if !errors.As(err, &matrixErr) {
		return false
	}
	return matrixErr.StatusCode == 429 || matrixErr.Code == ErrCodeLimitExceeded
}

// IsConflict reports whether err signals that the account or room alias
// already exists remotely.
func IsConflict(err error) bool {
	return IsCode(err, ErrCodeUserInUse) || IsCode(err, ErrCodeRoomInUse)
}

// RetryAfter returns the server wait hint attached to a rate-limit error,
// and false when the error carries no hint.
func RetryAfter(err error) (time.Duration, bool) {
	var matrixErr *Error
	if !errors.As(err, &matrixErr) || matrixErr.RetryAfterMs <= 0 {
		return 0, false
	}
	return time.Duration(matrixErr.RetryAfterMs) * time.Millisecond, true
}
