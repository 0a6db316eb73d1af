package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("SYNTAX", "compilation failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "SYNTAX", resp.Error.Code)
	assert.Equal(t, "compilation failed", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "main.mux", "line": "42"}
	err := formatter.Error("SYNTAX", "syntax error", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("no issues found")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no issues found")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error(ErrCodeRegistry, "registry not found", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [REGISTRY_ERROR]")
	assert.Contains(t, buf.String(), "registry not found")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "main.mux"}
	err := formatter.Error(ErrCodeIO, "cannot write artifacts", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [IO_ERROR]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Rendering %s", "proto")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Rendering proto")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("diagnostic noise")

	assert.Empty(t, out.String(), "verbose output must not corrupt JSON on stdout")
	assert.Contains(t, errOut.String(), "diagnostic noise")
}

func TestExitErrorCodes(t *testing.T) {
	failure := NewExitError(ExitFailure, "compilation failed with 2 error(s)")
	assert.Equal(t, ExitFailure, GetExitCode(failure))
	assert.Equal(t, "compilation failed with 2 error(s)", failure.Error())

	wrapped := WrapExitError(ExitCommandError, "opening registry", errors.New("disk gone"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "opening registry")
	assert.Contains(t, wrapped.Error(), "disk gone")
	assert.Equal(t, "disk gone", wrapped.Unwrap().Error())

	// Wrapping layers still expose the code.
	layered := fmt.Errorf("running command: %w", failure)
	assert.Equal(t, ExitFailure, GetExitCode(layered))
}

func TestGetExitCodeDefaultsToCommandError(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unknown flag")))
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "NAME_COLLISION",
		Message: "two types render as the same name",
		Details: []string{"billing.Invoice", "billing.InvoiceV2"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "NAME_COLLISION", decoded.Code)
	assert.Equal(t, "two types render as the same name", decoded.Message)
}
