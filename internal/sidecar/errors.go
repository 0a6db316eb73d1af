package sidecar

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// CodeUnknownAnnotation covers every overlay failure: structure
// violations, out-of-vocabulary values and names absent from the
// schema.
const CodeUnknownAnnotation = "UNKNOWN_ANNOTATION"

// Error is an overlay validation failure. Pos is set when CUE can
// point into the YAML source; File alone when only the overlay file
// is known.
type Error struct {
	Code    string
	Message string
	File    string
	Pos     token.Pos
}

func (e *Error) Error() string {
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// AsError returns the overlay error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var se *Error
	ok := errors.As(err, &se)
	return se, ok
}

func newOverlayError(file, msg string) *Error {
	return &Error{Code: CodeUnknownAnnotation, Message: msg, File: file}
}
