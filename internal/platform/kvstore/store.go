// Package kvstore provides the key-value persistence used for shopper state.
//
// Every backend offers atomic single-key read-modify-write through Update. There are no
// cross-key transactions; concurrent writers to different keys never block each other.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrSkipWrite can be returned by an UpdateFunc to leave the stored value untouched.
	ErrSkipWrite = errors.New("kvstore: skip write")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("kvstore: store is closed")
)

// UpdateFunc receives the current value and returns the replacement. Returning a nil slice and
// nil error deletes the key.
type UpdateFunc func(current []byte, exists bool) ([]byte, error)

// Store is the injected persistence for all session scoped records.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}

// Scanner lists keys sharing a prefix. All bundled backends implement it.
type Scanner interface {
	Keys(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Error classifies backend failures for the repository layer.
type Error struct {
	Op          string
	Key         string
	Err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Key != "" {
		return fmt.Sprintf("kvstore: %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("kvstore: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the key was absent.
func (e *Error) IsNotFound() bool { return e != nil && e.notFound }

// IsConflict reports whether a concurrent writer aborted the operation.
func (e *Error) IsConflict() bool { return e != nil && e.conflict }

// IsUnavailable reports whether the backend could not be reached.
func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }

func notFound(op, key string) error {
	return &Error{Op: op, Key: key, Err: ErrNotFound, notFound: true}
}

func unavailable(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Op: op, Key: key, Err: err, unavailable: true}
}

func validateKey(op, key string) error {
	if key == "" {
		return &Error{Op: op, Err: errors.New("key is required")}
	}
	return nil
}

// apply runs fn and reports what the caller should persist: write=false means leave as is,
// value=nil with write=true means delete.
func apply(fn UpdateFunc, current []byte, exists bool) (value []byte, write bool, err error) {
	if fn == nil {
		return nil, false, errors.New("kvstore: update function is required")
	}
	next, err := fn(current, exists)
	if errors.Is(err, ErrSkipWrite) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if next == nil && !exists {
		return nil, false, nil
	}
	return next, true, nil
}
