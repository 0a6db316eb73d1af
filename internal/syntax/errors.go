package syntax

import (
	"errors"
	"fmt"
)

// CodeSyntax is the diagnostic code for every parse-stage error.
const CodeSyntax = "SYNTAX"

// Error is a parse failure with source position and, when the parser
// stopped at an unexpected token, a description of what it expected.
type Error struct {
	Message  string
	Expected string // expected-token description, may be empty
	Pos      Pos
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Expected != "" {
		msg = fmt.Sprintf("%s (expected %s)", msg, e.Expected)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, CodeSyntax, msg)
	}
	return fmt.Sprintf("%s: %s", CodeSyntax, msg)
}

// IsSyntaxError reports whether err is (or wraps) a parse error.
func IsSyntaxError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
