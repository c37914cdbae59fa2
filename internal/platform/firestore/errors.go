package firestore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error carries grpc status classification for Firestore failures.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsNotFound reports whether the document was missing.
func (e *Error) IsNotFound() bool { return e != nil && e.notFound }

// IsConflict reports whether a precondition or contention aborted the call.
func (e *Error) IsConflict() bool { return e != nil && e.conflict }

// IsUnavailable reports whether the backend is temporarily unreachable.
func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }

// WrapError classifies err by grpc status code. Context cancellation passes through unchanged.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var existing *Error
	if errors.As(err, &existing) {
		if existing.op == "" {
			existing.op = op
		}
		return existing
	}

	e := &Error{op: op, err: err}
	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.NotFound:
		e.notFound = true
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		e.conflict = true
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		e.unavailable = true
	}
	return e
}

// IsNotFound reports whether err is a Firestore not-found failure.
func IsNotFound(err error) bool {
	if status.Code(err) == codes.NotFound {
		return true
	}
	var e *Error
	return errors.As(err, &e) && e.IsNotFound()
}
