// Package errors defines the failure taxonomy shared by every component of
// the NUMA memory core: allocator, placement, migration, hotness, and
// scheduler all return one of these sentinels (or nil for ok) instead of
// ad hoc error strings, so callers can branch with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a taxonomy member independent of the wrapping message,
// so an admin command adapter can map failures to short user-visible
// strings without string-matching error text.
type Code string

const (
	CodeOK              Code = "ok"
	CodeNotFound        Code = "not-found"
	CodeInvalid         Code = "invalid"
	CodeExists          Code = "exists"
	CodeOutOfMemory     Code = "out-of-memory"
	CodeUnsupportedKind Code = "unsupported-kind"
	CodeCorrupt         Code = "corrupt"
)

// Sentinel errors for errors.Is comparisons. Corrupt is never returned to
// a caller (§7: handled silently in the free path) but is kept for
// internal bookkeeping and tests.
var (
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalid         = &Error{Code: CodeInvalid, Message: "invalid argument"}
	ErrExists          = &Error{Code: CodeExists, Message: "already exists"}
	ErrOutOfMemory     = &Error{Code: CodeOutOfMemory, Message: "out of memory"}
	ErrUnsupportedKind = &Error{Code: CodeUnsupportedKind, Message: "unsupported value kind"}
	ErrCorrupt         = &Error{Code: CodeCorrupt, Message: "corrupt metadata"}
)

// Error is a taxonomy-coded error carrying optional context, mirroring the
// teacher's StandardError (category/code/message/context) but keyed to
// this domain's fixed §7 taxonomy rather than an open string category.
type Error struct {
	Code    Code
	Message string
	Context map[string]interface{}
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Code, e.Message, e.Context)
}

// Is allows errors.Is(err, ErrNotFound) to match any *Error sharing the
// same Code, regardless of message/context.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NotFound builds a not-found error naming the missing entity.
func NotFound(what string, ctx map[string]interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: what, Context: ctx}
}

// Invalid builds an invalid-argument error.
func Invalid(what string, ctx map[string]interface{}) *Error {
	return &Error{Code: CodeInvalid, Message: what, Context: ctx}
}

// Exists builds an already-exists error.
func Exists(what string, ctx map[string]interface{}) *Error {
	return &Error{Code: CodeExists, Message: what, Context: ctx}
}

// OutOfMemory builds an out-of-memory error.
func OutOfMemory(what string, ctx map[string]interface{}) *Error {
	return &Error{Code: CodeOutOfMemory, Message: what, Context: ctx}
}

// UnsupportedKind builds an unsupported-value-kind error.
func UnsupportedKind(kind string) *Error {
	return &Error{Code: CodeUnsupportedKind, Message: "no migration adapter for kind", Context: map[string]interface{}{"kind": kind}}
}

// Corrupt builds a corrupt-metadata error. Callers on the free path must
// never propagate this; it exists so compaction/scan code can report it
// internally and tests can assert detection.
func Corrupt(what string) *Error {
	return &Error{Code: CodeCorrupt, Message: what}
}

// AsCode extracts the taxonomy Code from err, returning CodeOK for nil and
// a best-effort CodeInvalid for errors outside the taxonomy.
func AsCode(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInvalid
}

// UserMessage maps a taxonomy error to the short admin-facing string §7
// requires ("Key not found", "Out of memory", ...).
func UserMessage(err error) string {
	switch AsCode(err) {
	case CodeOK:
		return "OK"
	case CodeNotFound:
		return "Key not found"
	case CodeInvalid:
		return "Invalid argument"
	case CodeExists:
		return "Already exists"
	case CodeOutOfMemory:
		return "Out of memory"
	case CodeUnsupportedKind:
		return "Unsupported value kind"
	case CodeCorrupt:
		return "Corrupt metadata"
	default:
		return "Unknown error"
	}
}
