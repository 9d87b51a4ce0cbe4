// Package errors provides coded errors shared by the flow model, the CLI
// and the HTTP facade.
//
// Every failure the libraries report on purpose is an [*Error] carrying a
// [Code]. Codes group into a few kinds (invalid input, conflict, not
// found, layout) so front ends can map them to exit messages or HTTP
// statuses without listing every code:
//
//	err := errors.New(errors.ErrCodeNodeNotFound, "node %q not found", id)
//	errors.Is(err, errors.ErrCodeNodeNotFound)      // true
//	errors.KindOf(err) == errors.KindNotFound       // true
//
// Wrapping keeps the cause reachable through errors.Unwrap:
//
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, cause, "decode %s", path)
//
// Structural violations of a flow (adding a node that already belongs to a
// flow, reusing an id) are programming errors. They are reported with
// [ErrCodeAlreadyOwned] and [ErrCodeDuplicate] and leave the flow
// unchanged.
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidID     Code = "INVALID_ID"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidGrid   Code = "INVALID_GRID"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeUnsupported   Code = "UNSUPPORTED"

	ErrCodeAlreadyOwned Code = "ALREADY_OWNED"
	ErrCodeDuplicate    Code = "DUPLICATE"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeNodeNotFound Code = "NODE_NOT_FOUND"
	ErrCodeLinkNotFound Code = "LINK_NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	ErrCodeLayoutCycle Code = "LAYOUT_CYCLE"

	// ErrCodeCorrupt reports an index that no longer matches the nodes and
	// links it describes.
	ErrCodeCorrupt  Code = "CORRUPT_INDEX"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Kind groups codes by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindConflict
	KindNotFound
	KindLayout
)

var kinds = map[Code]Kind{
	ErrCodeInvalidInput:  KindInvalid,
	ErrCodeInvalidID:     KindInvalid,
	ErrCodeInvalidFormat: KindInvalid,
	ErrCodeInvalidGrid:   KindInvalid,
	ErrCodeInvalidPath:   KindInvalid,
	ErrCodeUnsupported:   KindInvalid,
	ErrCodeAlreadyOwned:  KindConflict,
	ErrCodeDuplicate:     KindConflict,
	ErrCodeNotFound:      KindNotFound,
	ErrCodeNodeNotFound:  KindNotFound,
	ErrCodeLinkNotFound:  KindNotFound,
	ErrCodeFileNotFound:  KindNotFound,
	ErrCodeLayoutCycle:   KindLayout,
}

// Kind returns the group c belongs to. Unknown codes are internal.
func (c Code) Kind() Kind {
	return kinds[c]
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error with the given code that wraps cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether any [*Error] in err's chain has the given code, so a
// wrapped cause keeps its own code visible:
//
//	err := Wrap(ErrCodeInvalidFormat, New(ErrCodeDuplicate, "x"), "node 2")
//	Is(err, ErrCodeInvalidFormat) // true
//	Is(err, ErrCodeDuplicate)     // true
func Is(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode returns the code of the outermost [*Error] in err's chain, or ""
// if there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// KindOf returns the kind of err's outermost code. Errors without a code
// are internal.
func KindOf(err error) Kind {
	return GetCode(err).Kind()
}

// UserMessage returns the message of the outermost [*Error] without its
// code prefix, or err.Error() for other errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
