package prefs

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure so callers can pick a recovery policy
// without inspecting error text.
type Kind int

const (
	// KindDirectory: the per-user config directory could not be resolved or created.
	KindDirectory Kind = iota + 1
	// KindRead: the config file exists but could not be read.
	KindRead
	// KindWrite: the config file could not be written.
	KindWrite
	// KindParse: the config file is not valid JSON for the Config shape.
	KindParse
	// KindSerialize: the in-memory Config could not be encoded.
	KindSerialize
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindParse:
		return "parse"
	case KindSerialize:
		return "serialize"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single error type returned by Store operations.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindDirectory:
		msg = "failed to get config directory"
	case KindRead:
		msg = "failed to read config file"
	case KindWrite:
		msg = "failed to write config file"
	case KindParse:
		msg = "failed to parse config file"
	case KindSerialize:
		msg = "failed to serialize config"
	default:
		msg = "config error"
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, &Error{Kind: KindRead}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Path == "" && t.Err == nil
}

// KindOf returns the Kind carried by err, or 0 if err is not a store error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// IsKind reports whether err is a store error of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

func newError(k Kind, path string, err error) *Error {
	return &Error{Kind: k, Path: path, Err: err}
}
