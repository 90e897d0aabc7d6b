package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/importer"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the run finished but reported row errors
	ExitCommandError = 2 // bad arguments, unreadable file, store unavailable
)

type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that carry no code.
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

type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

type CLIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Fail reports err and converts it into an ExitError. Domain errors keep their code.
func (f *OutputFormatter) Fail(err error) error {
	ae := apperr.As(err)
	msg := ae.Msg
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		msg = exitErr.Error()
	}
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: ae.Code, Message: msg, Details: ae.Details},
		})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", ae.Code, msg)
		for _, d := range ae.Details {
			fmt.Fprintf(f.Writer, "  - %s\n", d)
		}
	}
	if exitErr != nil {
		return exitErr
	}
	return WrapExitError(ExitCommandError, msg, err)
}

// Report prints an import result. A result with errors exits with ExitFailure.
func (f *OutputFormatter) Report(title string, res importer.Result) error {
	status := "ok"
	if !res.Success {
		status = "error"
	}
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(CLIResponse{Status: status, Data: res}); err != nil {
			return err
		}
	} else {
		mark := "✓"
		if !res.Success {
			mark = "✗"
		}
		fmt.Fprintf(f.Writer, "%s %s\n", mark, title)
		fmt.Fprintf(f.Writer, "processed %d, created %d, updated %d, variants created %d\n",
			res.Processed, res.Created, res.Updated, res.VariantsCreated)
		for _, e := range res.Errors {
			fmt.Fprintf(f.Writer, "  error: %s\n", e)
		}
		if f.Verbose || res.Success {
			for _, w := range res.Warnings {
				fmt.Fprintf(f.Writer, "  warning: %s\n", w)
			}
		}
	}
	if !res.Success {
		return NewExitError(ExitFailure, fmt.Sprintf("%s with %d error(s)", title, len(res.Errors)))
	}
	return nil
}

// VerboseLog writes to ErrWriter so JSON output stays clean.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
