package controller

import (
	"errors"
	"net/http"
)

// Kind classifies controller failures.
type Kind uint8

const (
	KindUnknown Kind = iota
	TokenizationFailed
	ContextOverflow
	ContextExhausted
	EngineDecodeFailed
	LogitsUnavailable
	BatchInitFailed
	PersistenceFailed
	Cancelled
	// SessionBusy means the lease could not be acquired within the
	// admission limits.
	SessionBusy
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	TokenizationFailed: "tokenization_failed",
	ContextOverflow:    "context_overflow",
	ContextExhausted:   "context_exhausted",
	EngineDecodeFailed: "engine_decode_failed",
	LogitsUnavailable:  "logits_unavailable",
	BatchInitFailed:    "batch_init_failed",
	PersistenceFailed:  "persistence_failed",
	Cancelled:          "cancelled",
	SessionBusy:        "session_busy",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Error is the controller's error type. Err, when set, is the underlying
// engine or I/O error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the kind onto an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case SessionBusy:
		return http.StatusTooManyRequests
	case ContextOverflow, TokenizationFailed:
		return http.StatusBadRequest
	case Cancelled:
		return 499
	case PersistenceFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func newError(k Kind, op string, err error) *Error { return &Error{Kind: k, Op: op, Err: err} }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

func IsContextOverflow(err error) bool { return IsKind(err, ContextOverflow) }
func IsSessionBusy(err error) bool     { return IsKind(err, SessionBusy) }
func IsCancelled(err error) bool       { return IsKind(err, Cancelled) }
func IsPersistence(err error) bool     { return IsKind(err, PersistenceFailed) }
