package cli

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// BadArgumentExitCode is the CLI exit code for invalid arguments, for example
// an FQBN that lacks a required custom board option.
const BadArgumentExitCode = 7

// CliError is a structured error reported by the CLI on stderr as {"error": "..."}.
type CliError struct {
	Message  string
	ExitCode int
}

func (e *CliError) Error() string {
	return e.Message
}

// CommandErrorMessage extracts the message of a CLI error object. It reports
// false unless stderr is a JSON object with a string-typed "error" field.
func CommandErrorMessage(stderr []byte) (string, bool) {
	if !gjson.ValidBytes(stderr) {
		return "", false
	}
	root := gjson.ParseBytes(stderr)
	if !root.IsObject() {
		return "", false
	}
	field := root.Get("error")
	if field.Type != gjson.String {
		return "", false
	}
	return field.String(), true
}

// Classify converts a failed invocation into a *CliError when its stderr carries
// a well-formed CLI error object. Any other error is returned unchanged.
func Classify(err error) error {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return err
	}
	msg, ok := CommandErrorMessage(exitErr.Result.Stderr)
	if !ok {
		return err
	}
	return &CliError{Message: msg, ExitCode: exitErr.Result.ExitCode}
}

// IsBadArgumentError returns true if err is a *CliError with the bad-argument exit code.
func IsBadArgumentError(err error) bool {
	var cliErr *CliError
	return errors.As(err, &cliErr) && cliErr.ExitCode == BadArgumentExitCode
}

// missingProgrammerPhrases holds the translated CLI message per locale.
var missingProgrammerPhrases = map[string]string{
	"en": "missing programmer",
	"it": "programmatore mancante",
}

// IsMissingProgrammerError reports whether err is the CLI complaining that a
// programmer is required but was not given.
//
// This is best-effort: the CLI only reports it as a translated message. When
// locale is empty or unknown every known translation is tried. A false result
// does not prove the error is something else.
func IsMissingProgrammerError(err error, locale string) bool {
	var cliErr *CliError
	if !errors.As(err, &cliErr) {
		return false
	}
	msg := strings.ToLower(cliErr.Message)

	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "_-."); i >= 0 {
		lang = lang[:i]
	}
	// The CLI falls back to English for untranslated strings
	phrases := []string{missingProgrammerPhrases["en"]}
	if phrase, ok := missingProgrammerPhrases[lang]; ok {
		phrases = append(phrases, phrase)
	} else {
		for _, phrase := range missingProgrammerPhrases {
			phrases = append(phrases, phrase)
		}
	}

	for _, phrase := range phrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
