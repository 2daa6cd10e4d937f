package bridge

import (
	"errors"

	"sealedstate/internal/domain"
)

// Status is the outcome of a Call.
type Status uint8

// Call statuses.
const (
	StatusOK Status = iota
	StatusCodec
	StatusCrypto
	StatusTree
	StatusStaleLockParam
	StatusIO
	StatusTransition
	StatusBadRequest
	StatusInternal
)

var statusNames = [...]string{
	StatusOK:             "ok",
	StatusCodec:          "codec",
	StatusCrypto:         "crypto",
	StatusTree:           "tree",
	StatusStaleLockParam: "stale_lock_param",
	StatusIO:             "io",
	StatusTransition:     "transition",
	StatusBadRequest:     "bad_request",
	StatusInternal:       "internal",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// errBadRequest marks requests that do not decode or name no operation.
var errBadRequest = errors.New("bad request")

// StatusOf classifies err by its category.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, domain.ErrStaleLockParam):
		return StatusStaleLockParam
	case errors.Is(err, errBadRequest):
		return StatusBadRequest
	case errors.Is(err, domain.ErrCodec):
		return StatusCodec
	case errors.Is(err, domain.ErrCrypto):
		return StatusCrypto
	case errors.Is(err, domain.ErrTree):
		return StatusTree
	case errors.Is(err, domain.ErrIO):
		return StatusIO
	case errors.Is(err, domain.ErrTransition):
		return StatusTransition
	default:
		return StatusInternal
	}
}

// ParseStatus returns the Status named s.
func ParseStatus(s string) (Status, bool) {
	for i, name := range statusNames {
		if name == s {
			return Status(i), true
		}
	}
	return 0, false
}

// Err returns the error category of s, or nil for StatusOK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusCodec:
		return domain.ErrCodec
	case StatusCrypto:
		return domain.ErrCrypto
	case StatusTree:
		return domain.ErrTree
	case StatusStaleLockParam:
		return domain.ErrStaleLockParam
	case StatusIO:
		return domain.ErrIO
	case StatusTransition:
		return domain.ErrTransition
	case StatusBadRequest:
		return errBadRequest
	default:
		return errInternal
	}
}

var errInternal = errors.New("internal error")
