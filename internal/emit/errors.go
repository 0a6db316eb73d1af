package emit

import (
	"errors"
	"fmt"

	"github.com/roach88/manifold/internal/ir"
)

// CodeEmptyAPI marks a target whose output contract cannot be met:
// GraphQL without query methods cannot synthesize its Query root, and
// OpenAPI with no paths or schemas would be a vacuous document.
const CodeEmptyAPI = "EMPTY_API"

// Error is an emission failure scoped to a single target. Other
// targets keep emitting.
type Error struct {
	Code    string
	Target  ir.Target
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Target, e.Code, e.Message)
}

// AsError returns the emission error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var ee *Error
	ok := errors.As(err, &ee)
	return ee, ok
}

func newEmptyAPI(target ir.Target, msg string) *Error {
	return &Error{Code: CodeEmptyAPI, Target: target, Message: msg}
}
