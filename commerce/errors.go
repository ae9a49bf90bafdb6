package commerce

import (
	"errors"
	"fmt"

	"github.com/jacentio/storefront/docdb"
)

// Kind classifies an Error for callers.
type Kind uint8

const (
	KindServer Kind = iota
	KindNotFound
	KindBadRequest
	KindUnauthorized
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	default:
		return "server_error"
	}
}

// ErrBlobCleanup marks a failure to delete blobs after the database change
// they belonged to was committed.
var ErrBlobCleanup = errors.New("blob cleanup failed")

// Error is a domain error. Msg is safe to show to clients; Err is the
// internal cause and is only logged.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound returns a KindNotFound error.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// BadRequest returns a KindBadRequest error.
func BadRequest(msg string) error {
	return &Error{Kind: KindBadRequest, Msg: msg}
}

// BadRequestf returns a KindBadRequest error with a formatted message.
func BadRequestf(format string, args ...any) error {
	return &Error{Kind: KindBadRequest, Msg: fmt.Sprintf(format, args...)}
}

// Unauthorized returns a KindUnauthorized error.
func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

// ServerError returns a KindServer error wrapping err.
func ServerError(msg string, err error) error {
	return &Error{Kind: KindServer, Msg: msg, Err: err}
}

// KindOf returns the kind of err. Errors that are not an *Error are
// KindServer.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return "internal server error"
}

// lookupError translates a failed read.
func lookupError(err error, notFound string) error {
	if errors.Is(err, docdb.ErrNotFound) {
		return &Error{Kind: KindNotFound, Msg: notFound, Err: err}
	}
	return ServerError("database read failed", err)
}

// writeError translates a failed commit. duplicate is the message used when
// a unique value or id is already taken.
func writeError(err error, duplicate string) error {
	if duplicate == "" {
		duplicate = "record already exists"
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docdb.ErrDuplicateValue), errors.Is(err, docdb.ErrAlreadyExists):
		return &Error{Kind: KindBadRequest, Msg: duplicate, Err: err}
	case errors.Is(err, docdb.ErrConcurrentModification):
		return &Error{Kind: KindConflict, Msg: "resource was modified concurrently, retry the request", Err: err}
	case errors.Is(err, docdb.ErrParentNotFound):
		return &Error{Kind: KindNotFound, Msg: "parent record not found", Err: err}
	case errors.Is(err, docdb.ErrTransactionTooLarge):
		return ServerError("too many records to change in one transaction", err)
	default:
		return ServerError("database write failed", err)
	}
}
