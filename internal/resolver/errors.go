package resolver

import (
	"errors"
	"fmt"

	"github.com/roach88/manifold/internal/syntax"
)

// Diagnostic codes for load and symbol collection failures.
const (
	CodeUnresolvedImport = "UNRESOLVED_IMPORT"
	CodeCyclicImport     = "CYCLIC_IMPORT"
	CodeDuplicateDecl    = "DUPLICATE_DECLARATION"
)

// Error is a load-stage failure. Chain is populated for import cycles
// with the participating files in import order, first file repeated at
// the end.
type Error struct {
	Code    string
	Message string
	Pos     syntax.Pos
	Chain   []string
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsError returns the load error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var le *Error
	ok := errors.As(err, &le)
	return le, ok
}
