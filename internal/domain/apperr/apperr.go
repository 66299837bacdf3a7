package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindValidation
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation error"
	case KindDependency:
		return "dependency error"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is; any *Error of the same kind matches.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrValidation = &Error{Kind: KindValidation}
	ErrDependency = &Error{Kind: KindDependency}
)

// Error is returned by the application layer. BlobIDs lists the blobs left
// unresolved by a failed dependency call, if any.
type Error struct {
	Kind    Kind
	Op      string
	Msg     string
	BlobIDs []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}

	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(e.Kind.String())
	}

	if len(e.BlobIDs) > 0 {
		fmt.Fprintf(&b, " (blobs: %s)", strings.Join(e.BlobIDs, ", "))
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

func NotFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

func Forbidden(op, msg string) error {
	return &Error{Kind: KindForbidden, Op: op, Msg: msg}
}

func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func Dependency(op, msg string, err error, blobIDs ...string) error {
	return &Error{Kind: KindDependency, Op: op, Msg: msg, Err: err, BlobIDs: blobIDs}
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return 0
}

// FailedBlobs returns the blob ids carried by err, if any.
func FailedBlobs(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.BlobIDs
	}

	return nil
}
