package lobby

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of them under errors.Is.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
)

var (
	ErrDuplicateLobby = fmt.Errorf("%w: an open lobby already exists for this creator", ErrConflict)
	ErrSelfJoin       = fmt.Errorf("%w: cannot join your own lobby", ErrConflict)
	ErrNotOwner       = fmt.Errorf("%w: only the creator can cancel a lobby", ErrConflict)
	ErrClassMismatch  = fmt.Errorf("%w: player class does not match the lobby", ErrConflict)
	ErrAlreadyMatched = fmt.Errorf("%w: already matched", ErrConflict)
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Code is the stable wire code for err, most specific first.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateLobby):
		return "duplicate_lobby"
	case errors.Is(err, ErrSelfJoin):
		return "self_join"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrClassMismatch):
		return "class_mismatch"
	case errors.Is(err, ErrAlreadyMatched):
		return "already_matched"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	}
	return "internal"
}
