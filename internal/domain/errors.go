package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateRequest = errors.New("connection request already exists")
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrInvalidInput = errors.New("invalid input")
	ErrSelfRequest  = errors.New("cannot connect with self")
	ErrNotPending   = errors.New("connection request is not pending")
	ErrForbidden    = errors.New("not allowed to act on this request")
)

// StoreError wraps a driver failure so callers can match it with
// errors.Is(err, ErrStoreUnavailable) while keeping the cause in the message.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateRequest) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
