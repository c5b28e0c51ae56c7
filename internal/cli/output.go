package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xuxxeth/sx/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Command ran and the ledger accepted it
	ExitFailure      = 1 // The ledger rejected the transition (taken address, bad field, ...)
	ExitCommandError = 2 // Command error (bad config, unreadable store, malformed argument)
)

// Command-level error codes. Ledger rejections use the ledger's own codes
// ("AddressOccupied", "InvalidUsername", ...).
const (
	ErrCodeGeneric  = "E001"
	ErrCodeConfig   = "E002"
	ErrCodeStore    = "E003"
	ErrCodeArgument = "E004"
)

// ExitError carries the exit code a command failed with.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command's output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // ledger code or "E00x"
	Message string `json:"message"`           // human-readable message
	Address string `json:"address,omitempty"` // address the ledger error is about
}

// Success outputs a successful result in the configured format. In text
// format data is printed with %v, so types that want a readable text form
// implement fmt.Stringer.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message, addr string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Address: addr,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && addr != "" {
		fmt.Fprintf(f.Writer, "Address: %s\n", addr)
	}
	return nil
}

// Reject reports err and returns the ExitError the command should fail
// with. Ledger errors exit with ExitFailure; anything else is a command
// error.
func (f *OutputFormatter) Reject(err error) error {
	var ledgerErr *ir.Error
	if errors.As(err, &ledgerErr) {
		_ = f.Error(string(ledgerErr.Code), ledgerErr.Message, ledgerErr.Address)
		return WrapExitError(ExitFailure, "transition rejected", err)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		_ = f.Error(ErrCodeGeneric, exitErr.Error(), "")
		return exitErr
	}
	_ = f.Error(ErrCodeGeneric, err.Error(), "")
	return WrapExitError(ExitCommandError, "command failed", err)
}

// VerboseLog outputs a message only if verbose mode is enabled. In JSON
// format it must go to ErrWriter to keep stdout parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
