package kv

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies storage failures.
type Kind int

const (
	// Unavailable means the backend could not be read or written.
	Unavailable Kind = iota
	// Malformed means a stored blob could not be decoded.
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// StorageError is returned by every backend operation that fails.
type StorageError struct {
	Op   string
	Key  string
	Kind Kind
	Err  error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("kv %s (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("kv %s %q (%s): %v", e.Op, e.Key, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// unavailable wraps err as an Unavailable StorageError. A nil err stays nil.
func unavailable(op, key string, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Key: key, Kind: Unavailable, Err: pkgerrors.Wrap(err, msg)}
}

// NewMalformed reports a blob under key that failed to decode.
func NewMalformed(key string, err error) error {
	return &StorageError{Op: "decode", Key: key, Kind: Malformed, Err: err}
}

// IsUnavailable reports whether err is an Unavailable StorageError or a
// context deadline.
func IsUnavailable(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind == Unavailable
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsMalformed reports whether err is a Malformed StorageError.
func IsMalformed(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == Malformed
}
