package audio

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure so callers can react without parsing
// error strings.
type Kind int

const (
	KindFormatDetectionFailed Kind = iota
	KindFetchTimeout
	KindProcessingFailed
	KindCorruptedStream
	KindSourceNotFound
	KindSizeLimitExceeded
	KindUnsupportedFormat
)

// String returns the stable name of the error kind.
func (k Kind) String() string {
	switch k {
	case KindFormatDetectionFailed:
		return "format_detection_failed"
	case KindFetchTimeout:
		return "fetch_timeout"
	case KindProcessingFailed:
		return "processing_failed"
	case KindCorruptedStream:
		return "corrupted_stream"
	case KindSourceNotFound:
		return "source_not_found"
	case KindSizeLimitExceeded:
		return "size_limit_exceeded"
	case KindUnsupportedFormat:
		return "unsupported_format"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline error carrying structured diagnostic context.
type Error struct {
	Kind    Kind
	Locator string // source locator, if known
	Codec   string // detected codec, if relevant
	Bytes   int64  // byte count processed before failure, if relevant
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Locator != "" {
		msg += fmt.Sprintf(" (locator %q)", e.Locator)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is works against bare-kind templates.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// IsKind reports whether err is a pipeline error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// NewError creates a classified error with a detail message.
func NewError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// WrapError classifies an underlying error.
func WrapError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}
