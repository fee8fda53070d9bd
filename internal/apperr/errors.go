// Package apperr defines the error taxonomy shared by the tool handlers.
//
// Every failure a tool can surface falls into one of three kinds: the caller
// sent something unusable (Input), a model or index the handler depends on
// cannot be reached or loaded (BackendUnavailable), or a requested reference
// symbol does not exist (LookupMiss). LookupMiss is never returned from a
// batch lookup; it only classifies per-symbol misses.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindInput
	KindBackendUnavailable
	KindLookupMiss
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "InputError"
	case KindBackendUnavailable:
		return "BackendUnavailable"
	case KindLookupMiss:
		return "LookupMiss"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrInput              = errors.New("invalid input")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrLookupMiss         = errors.New("symbol not found")

	// ErrModelMismatch means the index was built with a different embedding model
	// than the one configured for queries.
	ErrModelMismatch = errors.New("embedding model mismatch")
)

// Error carries a Kind, the failing operation, and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInput:
		return e.Kind == KindInput
	case ErrBackendUnavailable:
		return e.Kind == KindBackendUnavailable
	case ErrLookupMiss:
		return e.Kind == KindLookupMiss
	}
	return false
}

// Input builds an InputError.
func Input(op, format string, args ...any) error {
	return &Error{Kind: KindInput, Op: op, Err: fmt.Errorf(format, args...)}
}

// Unavailable wraps err as BackendUnavailable. A nil err yields nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == KindBackendUnavailable {
		return err
	}
	return &Error{Kind: KindBackendUnavailable, Op: op, Err: err}
}

// Miss builds a LookupMiss for a single symbol.
func Miss(name string) error {
	return &Error{Kind: KindLookupMiss, Op: "lookup", Err: fmt.Errorf("%q is not a known SDK symbol", name)}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}
