package registry

import (
	"errors"
	"fmt"
	"strings"
)

// CodeNumberDrift reports a surviving (type, field) pair whose wire
// number changed relative to the latest recorded baseline.
const CodeNumberDrift = "NUMBER_DRIFT"

// Drift is one renumbered pair.
type Drift struct {
	Type  string
	Field string
	Old   int
	New   int
}

// Error is a registry failure with a stable machine code.
type Error struct {
	Code    string
	Message string
	Drifts  []Drift
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsError unwraps err to a registry *Error.
func AsError(err error) (*Error, bool) {
	var re *Error
	ok := errors.As(err, &re)
	return re, ok
}

func newNumberDrift(drifts []Drift) *Error {
	parts := make([]string, len(drifts))
	for i, d := range drifts {
		parts[i] = fmt.Sprintf("%s.%s: %d -> %d", d.Type, d.Field, d.Old, d.New)
	}
	return &Error{
		Code:    CodeNumberDrift,
		Message: "field numbers drifted from the latest snapshot: " + strings.Join(parts, ", "),
		Drifts:  drifts,
	}
}
