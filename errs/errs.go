// Package errs defines the error taxonomy shared by every patpack package.
//
// All failures surface as an *Error carrying a Kind, so callers can match on
// the kind with errors.Is against the sentinel values below instead of
// inspecting message text:
//
//	if errors.Is(err, errs.ErrPatternMismatch) {
//	    // fall back to another codec
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindUnknown         Kind = iota
	KindPatternMismatch      // input violates a codec precondition
	KindInvalidHeader        // bad magic, version or header field on decode
	KindTruncated            // a record or header is shorter than its fixed size
	KindInvalidOffset        // back-reference points before the start of output
	KindIoFailure            // collaborator read/write failure
	KindConfigError          // invalid configuration value
	KindSerialization        // strategy/config/manifest encoding failure
	KindUnsupported          // algorithm or feature not registered
	KindCorrupted            // checksum mismatch or unrecoverable FEC payload
)

func (k Kind) String() string {
	switch k {
	case KindPatternMismatch:
		return "pattern mismatch"
	case KindInvalidHeader:
		return "invalid header"
	case KindTruncated:
		return "truncated"
	case KindInvalidOffset:
		return "invalid offset"
	case KindIoFailure:
		return "io failure"
	case KindConfigError:
		return "config error"
	case KindSerialization:
		return "serialization"
	case KindUnsupported:
		return "unsupported"
	case KindCorrupted:
		return "corrupted"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per kind. An *Error matches the sentinel of its kind
// under errors.Is.
var (
	ErrPatternMismatch = &Error{Kind: KindPatternMismatch}
	ErrInvalidHeader   = &Error{Kind: KindInvalidHeader}
	ErrTruncated       = &Error{Kind: KindTruncated}
	ErrInvalidOffset   = &Error{Kind: KindInvalidOffset}
	ErrIoFailure       = &Error{Kind: KindIoFailure}
	ErrConfig          = &Error{Kind: KindConfigError}
	ErrSerialization   = &Error{Kind: KindSerialization}
	ErrUnsupported     = &Error{Kind: KindUnsupported}
	ErrCorrupted       = &Error{Kind: KindCorrupted}
)

// Error is the tagged error returned by patpack operations.
type Error struct {
	Kind Kind
	// Op names the failing operation, e.g. "hybrid decompress".
	Op string
	// Msg is an optional detail message.
	Msg string
	// Err is the wrapped cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so that errors.Is(err, ErrTruncated) matches any
// truncation error regardless of Op or Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause with the given kind. It returns nil when cause is nil.
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return nil
	}

	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}
