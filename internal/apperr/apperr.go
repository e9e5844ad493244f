// Package apperr defines the error kinds surfaced by the pattern pipeline.
//
// Callers match a kind with errors.Is against one of the sentinel values:
//
//	if errors.Is(err, apperr.ErrDataFormat) { ... }
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindResourceNotFound
	KindDataFormat
	KindIO
	KindUnsupportedImage
)

func (k Kind) String() string {
	switch k {
	case KindResourceNotFound:
		return "resource not found"
	case KindDataFormat:
		return "data format"
	case KindIO:
		return "io"
	case KindUnsupportedImage:
		return "unsupported image"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching.
var (
	ErrResourceNotFound = &Error{Kind: KindResourceNotFound}
	ErrDataFormat       = &Error{Kind: KindDataFormat}
	ErrIO               = &Error{Kind: KindIO}
	ErrUnsupportedImage = &Error{Kind: KindUnsupportedImage}
)

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "load palette"
	Path string // file involved, if any
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so wrapped errors match the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New builds a classified error.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// DataFormat is shorthand for a KindDataFormat error with a formatted cause.
func DataFormat(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindDataFormat, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
