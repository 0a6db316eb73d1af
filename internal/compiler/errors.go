package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/manifold/internal/syntax"
)

// Diagnostic codes for build-stage failures.
const (
	CodeUnknownType         = "UNKNOWN_TYPE"
	CodeUnknownAnnotation   = "UNKNOWN_ANNOTATION"
	CodeUnsupportedType     = "UNSUPPORTED_TYPE"
	CodeFieldNumberConflict = "FIELD_NUMBER_CONFLICT"
	CodeNameCollision       = "NAME_COLLISION"
)

// Error is a build-stage failure tied to a source position where one
// is known; name collisions are detected on the IR and carry none.
type Error struct {
	Code    string
	Message string
	Pos     syntax.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsError returns the build error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var ce *Error
	ok := errors.As(err, &ce)
	return ce, ok
}

func newUnknownType(ref string, pos syntax.Pos) *Error {
	return &Error{
		Code:    CodeUnknownType,
		Message: fmt.Sprintf("unknown type %q", ref),
		Pos:     pos,
	}
}

func newUnsupportedType(msg string, pos syntax.Pos) *Error {
	return &Error{Code: CodeUnsupportedType, Message: msg, Pos: pos}
}

func newUnknownAnnotation(msg string, pos syntax.Pos) *Error {
	return &Error{Code: CodeUnknownAnnotation, Message: msg, Pos: pos}
}

func newNumberConflict(msg string, pos syntax.Pos) *Error {
	return &Error{Code: CodeFieldNumberConflict, Message: msg, Pos: pos}
}

func newNameCollision(msg string) *Error {
	return &Error{Code: CodeNameCollision, Message: msg}
}

// errorList accumulates build diagnostics across passes.
type errorList struct {
	errs []error
}

func (l *errorList) add(err error) { l.errs = append(l.errs, err) }

func (l *errorList) empty() bool { return len(l.errs) == 0 }
