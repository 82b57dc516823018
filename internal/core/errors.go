// Package core implements the gate state machine, the error taxonomy, and
// the small set of pure helpers (bounded reads, UTF-8 safe truncation,
// identifier validation) the rest of Grove builds on.
package core

import (
	"fmt"
	"log/slog"
)

// Kind is the closed set of error categories Grove distinguishes. Callers
// that need to branch on error type switch on Kind rather than comparing
// error values, matching the tagged-union shape of the original Rust
// GroveError enum.
type Kind int

const (
	KindStorage Kind = iota
	KindBackend
	KindSerde
	KindInvalidState
	KindSessionNotFound
	KindConfig
	KindDiscovery
	KindReflection
)

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindBackend:
		return "backend"
	case KindSerde:
		return "serde"
	case KindInvalidState:
		return "invalid_state"
	case KindSessionNotFound:
		return "session_not_found"
	case KindConfig:
		return "config"
	case KindDiscovery:
		return "discovery"
	case KindReflection:
		return "reflection"
	default:
		return "unknown"
	}
}

// Error is Grove's single error sum type. It carries a Kind plus a
// human-readable message, and optionally wraps an underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Path    string // populated for KindStorage
	Cause   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStorage:
		if e.Cause != nil {
			return fmt.Sprintf("storage error at %s: %v", e.Path, e.Cause)
		}
		return fmt.Sprintf("storage error at %s: %s", e.Path, e.Message)
	case KindSessionNotFound:
		return fmt.Sprintf("session not found: %s", e.Message)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether err is a Grove *Error of the given kind.
func Is(err error, kind Kind) bool {
	ge, ok := err.(*Error)
	return ok && ge.Kind == kind
}

func StorageErr(path string, cause error) *Error {
	return &Error{Kind: KindStorage, Path: path, Cause: cause}
}

func BackendErr(format string, args ...any) *Error {
	return &Error{Kind: KindBackend, Message: fmt.Sprintf(format, args...)}
}

func SerdeErr(format string, args ...any) *Error {
	return &Error{Kind: KindSerde, Message: fmt.Sprintf(format, args...)}
}

func InvalidStateErr(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func SessionNotFoundErr(id string) *Error {
	return &Error{Kind: KindSessionNotFound, Message: id}
}

func ConfigErr(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

func DiscoveryErr(format string, args ...any) *Error {
	return &Error{Kind: KindDiscovery, Message: fmt.Sprintf(format, args...)}
}

func ReflectionErr(format string, args ...any) *Error {
	return &Error{Kind: KindReflection, Message: fmt.Sprintf(format, args...)}
}

// FailOpenDefault logs a warning naming context and err, then returns the
// zero value of T, so the caller continues instead of propagating the error.
// The hook dispatcher's store and journal call sites log the same "fail
// open" warning directly through their logger rather than calling this.
func FailOpenDefault[T any](logger *slog.Logger, context string, err error) T {
	var zero T
	logger.Warn("fail open", "context", context, "error", err)
	return zero
}

// FailOpenWith is FailOpenDefault but returns a caller-supplied fallback
// instead of T's zero value.
func FailOpenWith[T any](logger *slog.Logger, context string, err error, fallback T) T {
	logger.Warn("fail open", "context", context, "error", err)
	return fallback
}
