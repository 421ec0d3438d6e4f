package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeNotConnected       = "not_connected"
	ErrCodeAccessBanned       = "access_banned"
	ErrCodeModerationRejected = "moderation_rejected"
	ErrCodePrecondition       = "precondition_failed"
	ErrCodeCacheCorrupt       = "cache_corrupt"
	ErrCodeRoomNotOpen        = "room_not_open"
	ErrCodeBadRequest         = "bad_request"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrRoomNotOpen  = errors.New("room not open")
	ErrBadRequest   = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is lets errors.Is match CoreErrors by code, and against the sentinel for that code.
func (e *CoreError) Is(target error) bool {
	switch target {
	case ErrNotConnected:
		return e.Code == ErrCodeNotConnected
	case ErrRoomNotOpen:
		return e.Code == ErrCodeRoomNotOpen
	case ErrBadRequest:
		return e.Code == ErrCodeBadRequest
	}
	var other *CoreError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewError builds a CoreError.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// ErrorCode extracts the code of a CoreError anywhere in err's chain.
func ErrorCode(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
