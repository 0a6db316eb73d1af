package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/manifold/internal/compiler"
	"github.com/roach88/manifold/internal/emit"
	"github.com/roach88/manifold/internal/registry"
	"github.com/roach88/manifold/internal/resolver"
	"github.com/roach88/manifold/internal/sidecar"
	"github.com/roach88/manifold/internal/syntax"
)

// Command-level error codes for failures outside the compile
// diagnostics taxonomy.
const (
	ErrCodeUsage    = "USAGE_ERROR"
	ErrCodeIO       = "IO_ERROR"
	ErrCodeRegistry = "REGISTRY_ERROR"
	ErrCodeGeneric  = "ERROR"
)

// Diagnostic is one compile-stage failure in CLI form.
type Diagnostic struct {
	Pos     string `json:"pos,omitempty"` // file:line:col when known
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toDiagnostic extracts position, code and message from any
// pipeline-stage error.
func toDiagnostic(err error) Diagnostic {
	var se *syntax.Error
	if errors.As(err, &se) {
		d := Diagnostic{Code: syntax.CodeSyntax, Message: se.Message}
		if se.Expected != "" {
			d.Message = fmt.Sprintf("%s (expected %s)", se.Message, se.Expected)
		}
		if se.Pos.IsValid() {
			d.Pos = se.Pos.String()
		}
		return d
	}
	if re, ok := resolver.AsError(err); ok {
		d := Diagnostic{Code: re.Code, Message: re.Message}
		if re.Pos.IsValid() {
			d.Pos = re.Pos.String()
		}
		return d
	}
	if ce, ok := compiler.AsError(err); ok {
		d := Diagnostic{Code: ce.Code, Message: ce.Message}
		if ce.Pos.IsValid() {
			d.Pos = ce.Pos.String()
		}
		return d
	}
	if oe, ok := sidecar.AsError(err); ok {
		d := Diagnostic{Code: oe.Code, Message: oe.Message}
		switch {
		case oe.Pos.IsValid():
			d.Pos = oe.Pos.String()
		case oe.File != "":
			d.Pos = oe.File
		}
		return d
	}
	if ee, ok := emit.AsError(err); ok {
		return Diagnostic{
			Code:    ee.Code,
			Message: fmt.Sprintf("%s: %s", ee.Target, ee.Message),
		}
	}
	if ge, ok := registry.AsError(err); ok {
		return Diagnostic{Code: ge.Code, Message: ge.Message}
	}
	return Diagnostic{Code: ErrCodeGeneric, Message: err.Error()}
}

// outputDiagnostics renders every diagnostic and returns the
// ExitFailure error for the command. header names the failed stage
// ("compilation failed" and the like).
func outputDiagnostics(f *OutputFormatter, header string, errs []error) error {
	diags := make([]Diagnostic, len(errs))
	for i, err := range errs {
		diags[i] = toDiagnostic(err)
	}

	if f.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   diags,
			Error:  &CLIError{Code: diags[0].Code, Message: diags[0].Message},
		}
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s with %d error(s)", header, len(errs)))
	}

	writeDiagnostics(f.Writer, header, errs)
	return NewExitError(ExitFailure, fmt.Sprintf("%s with %d error(s)", header, len(errs)))
}

// writeDiagnostics renders the text diagnostic blocks to w.
func writeDiagnostics(w io.Writer, header string, errs []error) {
	fmt.Fprintf(w, "✗ %s\n\n", header)
	for _, err := range errs {
		d := toDiagnostic(err)
		if d.Pos != "" {
			fmt.Fprintln(w, d.Pos)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", d.Code, d.Message)
	}
}

// commandError reports an environment or usage failure and returns the
// ExitCommandError for the command.
func commandError(f *OutputFormatter, code, message string) error {
	_ = f.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
