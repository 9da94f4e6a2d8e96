// Package errors provides structured error types for the Arduino debug MCP server.
// These errors include helpful hints that guide the caller (often an LLM) to correct
// course when a debug configuration cannot be resolved.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a category of error for programmatic handling
type ErrorCode string

const (
	// Parameter errors
	CodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	CodeInvalidParameter ErrorCode = "INVALID_PARAMETER"
	CodeInvalidJSON      ErrorCode = "INVALID_JSON"

	// Permission errors
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// Resolution errors
	CodeCancelled             ErrorCode = "CANCELLED"
	CodeCliExecFailed         ErrorCode = "CLI_EXEC_FAILED"
	CodeCliError              ErrorCode = "CLI_ERROR"
	CodeDebugInfoUnparsable   ErrorCode = "DEBUG_INFO_UNPARSABLE"
	CodeDebugInfoInvalid      ErrorCode = "DEBUG_INFO_INVALID"
	CodeLaunchStoreFailed     ErrorCode = "LAUNCH_STORE_FAILED"
	CodeCliVersionUnsupported ErrorCode = "CLI_VERSION_UNSUPPORTED"
	CodeDAPHandoffFailed      ErrorCode = "DAP_HANDOFF_FAILED"

	// Configuration errors
	CodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	CodeConfigInvalid  ErrorCode = "CONFIG_INVALID"
	CodeMissingInputs  ErrorCode = "MISSING_INPUTS"
)

// DebugError is a structured error type that includes helpful information
// for the caller to understand what went wrong and how to fix it.
type DebugError struct {
	// Code is a machine-readable error category
	Code ErrorCode `json:"code"`

	// Message is a human/LLM-readable description of what went wrong
	Message string `json:"message"`

	// Hint provides actionable guidance on how to fix the error
	Hint string `json:"hint,omitempty"`

	// Details contains additional context (e.g., the invalid value, expected format)
	Details map[string]interface{} `json:"details,omitempty"`

	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *DebugError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Hint != "" {
		sb.WriteString(" | Hint: ")
		sb.WriteString(e.Hint)
	}

	return sb.String()
}

// Unwrap returns the underlying error for error chaining
func (e *DebugError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *DebugError) WithDetails(key string, value interface{}) *DebugError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *DebugError) WithCause(err error) *DebugError {
	e.Cause = err
	return e
}

// Is reports whether err is a DebugError with the given code.
func Is(err error, code ErrorCode) bool {
	var de *DebugError
	return stderrors.As(err, &de) && de.Code == code
}

// --- Parameter Errors ---

// MissingParameter creates an error for missing required parameters
func MissingParameter(paramName, description string) *DebugError {
	return &DebugError{
		Code:    CodeMissingParameter,
		Message: fmt.Sprintf("required parameter '%s' is missing", paramName),
		Hint:    description,
		Details: map[string]interface{}{
			"parameter": paramName,
		},
	}
}

// InvalidParameter creates an error for invalid parameter values
func InvalidParameter(paramName string, value interface{}, expected string) *DebugError {
	return &DebugError{
		Code:    CodeInvalidParameter,
		Message: fmt.Sprintf("invalid value for parameter '%s': %v", paramName, value),
		Hint:    fmt.Sprintf("Expected: %s", expected),
		Details: map[string]interface{}{
			"parameter": paramName,
			"value":     value,
			"expected":  expected,
		},
	}
}

// InvalidJSON creates an error for JSON parsing failures
func InvalidJSON(paramName string, err error, example string) *DebugError {
	return &DebugError{
		Code:    CodeInvalidJSON,
		Message: fmt.Sprintf("invalid JSON in parameter '%s': %v", paramName, err),
		Hint:    fmt.Sprintf("Provide valid JSON. Example: %s", example),
		Cause:   err,
		Details: map[string]interface{}{
			"parameter": paramName,
			"example":   example,
		},
	}
}

// --- Permission Errors ---

// PermissionDenied creates an error for operations the server mode does not allow
func PermissionDenied(operation, mode string) *DebugError {
	var hint string
	switch operation {
	case "persist":
		hint = "The server is in read-only mode and does not write launch.json. Use arduino_debug_create_launch_config to resolve without persisting, or restart the server with -mode full."
	default:
		hint = fmt.Sprintf("This operation is not allowed in '%s' mode.", mode)
	}

	return &DebugError{
		Code:    CodePermissionDenied,
		Message: fmt.Sprintf("%s is not allowed in current server mode", operation),
		Hint:    hint,
		Details: map[string]interface{}{
			"operation": operation,
			"mode":      mode,
		},
	}
}

// --- Resolution Errors ---

// Cancelled creates an error for a resolution cancelled before the CLI was started
func Cancelled(err error) *DebugError {
	return &DebugError{
		Code:    CodeCancelled,
		Message: "debug configuration resolution was cancelled before arduino-cli was started",
		Cause:   err,
	}
}

// CliExecFailed creates an error for a CLI process that could not run or failed without
// a structured error
func CliExecFailed(cliPath string, err error) *DebugError {
	return &DebugError{
		Code:    CodeCliExecFailed,
		Message: fmt.Sprintf("could not start debugging: %v", err),
		Hint:    "Check that cliPath points to an executable arduino-cli and that the sketch compiles.",
		Cause:   err,
		Details: map[string]interface{}{
			"cliPath": cliPath,
		},
	}
}

// CliError creates an error for a structured arduino-cli failure. badArgument and
// missingProgrammer select the hint.
func CliError(message string, exitCode int, badArgument, missingProgrammer bool, err error) *DebugError {
	var hint string
	switch {
	case missingProgrammer:
		hint = "The board requires a programmer for debugging. Select one with the programmer parameter (see `arduino-cli board details --list-programmers`)."
	case badArgument:
		hint = "arduino-cli rejected an argument. Check the FQBN custom board options and the programmer."
	default:
		hint = "Check that the board's platform is installed and that it supports debugging."
	}

	return &DebugError{
		Code:    CodeCliError,
		Message: fmt.Sprintf("could not start debugging: %s", message),
		Hint:    hint,
		Cause:   err,
		Details: map[string]interface{}{
			"exitCode": exitCode,
		},
	}
}

// DebugInfoUnparsable creates an error for CLI output that is not a JSON object
func DebugInfoUnparsable(output string) *DebugError {
	return &DebugError{
		Code:    CodeDebugInfoUnparsable,
		Message: "arduino-cli returned no usable debug information",
		Hint:    "The CLI output was not a JSON object. Check that the arduino-cli version supports `debug --info --format json`.",
		Details: map[string]interface{}{
			"output": output,
		},
	}
}

// DebugInfoInvalid creates an error for debug information that fails validation
func DebugInfoInvalid(err error) *DebugError {
	return &DebugError{
		Code:    CodeDebugInfoInvalid,
		Message: err.Error(),
		Hint:    "Compile the sketch for this board before debugging, so that arduino-cli can report the executable.",
		Cause:   err,
	}
}

// LaunchStoreFailed creates an error for a launch configuration that could not be persisted
func LaunchStoreFailed(location string, err error) *DebugError {
	return &DebugError{
		Code:    CodeLaunchStoreFailed,
		Message: fmt.Sprintf("failed to update launch configurations in %s: %v", location, err),
		Hint:    "Check that the launch configurations directory is writable.",
		Cause:   err,
		Details: map[string]interface{}{
			"location": location,
		},
	}
}

// CliVersionUnsupported creates an error for an arduino-cli older than required
func CliVersionUnsupported(actual, minimum string) *DebugError {
	return &DebugError{
		Code:    CodeCliVersionUnsupported,
		Message: fmt.Sprintf("arduino-cli %s is not supported, %s or newer is required", actual, minimum),
		Hint:    "Update arduino-cli, or point cliPath to a newer binary.",
		Details: map[string]interface{}{
			"version":    actual,
			"minVersion": minimum,
		},
	}
}

// DAPHandoffFailed creates an error for a DAP server that did not accept the configuration
func DAPHandoffFailed(address string, err error) *DebugError {
	return &DebugError{
		Code:    CodeDAPHandoffFailed,
		Message: fmt.Sprintf("debug adapter at %s did not start the session: %v", address, err),
		Hint:    "The launch configuration was saved. Check that a debug adapter is listening on dapAddress and that its debugger type matches the configuration.",
		Cause:   err,
		Details: map[string]interface{}{
			"dapAddress": address,
		},
	}
}

// --- Configuration Errors ---

// ConfigNotFound creates an error for missing launch.json configurations
func ConfigNotFound(configID string, availableConfigs []string) *DebugError {
	var hint string
	if len(availableConfigs) > 0 {
		hint = fmt.Sprintf("Available configurations: %s", strings.Join(availableConfigs, ", "))
	} else {
		hint = "No configurations found in launch.json. Use arduino_debug_start to create one."
	}

	return &DebugError{
		Code:    CodeConfigNotFound,
		Message: fmt.Sprintf("configuration '%s' not found in launch.json", configID),
		Hint:    hint,
		Details: map[string]interface{}{
			"configId":         configID,
			"availableConfigs": availableConfigs,
		},
	}
}

// ConfigInvalid creates an error for invalid configuration
func ConfigInvalid(configName, reason string) *DebugError {
	return &DebugError{
		Code:    CodeConfigInvalid,
		Message: fmt.Sprintf("configuration '%s' is invalid: %s", configName, reason),
		Hint:    "Check the launch.json file for syntax errors and ensure all required fields are present.",
		Details: map[string]interface{}{
			"configName": configName,
			"reason":     reason,
		},
	}
}

// MissingInputs creates an error for missing input values
func MissingInputs(inputs []string) *DebugError {
	return &DebugError{
		Code:    CodeMissingInputs,
		Message: fmt.Sprintf("missing required input values: %s", strings.Join(inputs, ", ")),
		Hint:    "Provide the missing values via the inputValues parameter as a JSON object, e.g., {\"inputName\": \"value\"}",
		Details: map[string]interface{}{
			"missingInputs": inputs,
		},
	}
}

// --- Helper for wrapping generic errors ---

// Wrap wraps a generic error with context
func Wrap(code ErrorCode, message string, hint string, err error) *DebugError {
	return &DebugError{
		Code:    code,
		Message: message,
		Hint:    hint,
		Cause:   err,
	}
}

// FromError creates a DebugError from a generic error, attempting to preserve any existing structure
func FromError(err error) *DebugError {
	var de *DebugError
	if stderrors.As(err, &de) {
		return de
	}
	return &DebugError{
		Code:    "UNKNOWN_ERROR",
		Message: err.Error(),
		Hint:    "An unexpected error occurred. Please check the error message for details.",
		Cause:   err,
	}
}
