package dashboard

import (
	"errors"
	"fmt"
)

var (
	// ErrLookup means an identity or invitation code did not resolve to exactly one row.
	ErrLookup = errors.New("lookup failed")

	ErrNoSuchUser  = fmt.Errorf("no such user: %w", ErrLookup)
	ErrInvalidCode = fmt.Errorf("invalid invitation code: %w", ErrLookup)

	ErrAlreadyEnrolled = errors.New("you are already enrolled in this classroom")
)

// StoreError wraps a failed query or insert. It is returned verbatim and never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
