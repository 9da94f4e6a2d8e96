package launchconfig

import (
	"errors"
	"fmt"
	"sort"
)

// ResolveConfiguration returns a copy of cfg with every ${...} variable resolved.
// Attributes of any depth are resolved; map keys are kept as they are.
func ResolveConfiguration(cfg LaunchConfig, ctx *ResolutionContext) (LaunchConfig, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if ctx == nil {
		ctx = &ResolutionContext{}
	}

	// Check for missing input values first
	if missing := ValidateInputsProvided(cfg, ctx.InputValues); len(missing) > 0 {
		return nil, &MissingInputsError{Inputs: missing}
	}

	resolved := make(LaunchConfig, len(cfg))
	for k, v := range cfg {
		value, err := resolveValue(v, ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", k, err)
		}
		resolved[k] = value
	}
	return resolved, nil
}

// resolveValue resolves variables in a value of any type.
func resolveValue(v any, ctx *ResolutionContext) (any, error) {
	switch val := v.(type) {
	case string:
		return ResolveVariables(val, ctx)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			resolved, err := resolveValue(item, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := resolveValue(item, ctx)
			if err != nil {
				return nil, err
			}
			result[k] = resolved
		}
		return result, nil
	default:
		// Non-string types pass through unchanged (numbers, bools, nil)
		return v, nil
	}
}

// MissingInputsError is returned when required ${input:} values are not provided.
type MissingInputsError struct {
	Inputs []string
}

func (e *MissingInputsError) Error() string {
	return fmt.Sprintf("missing input values: %v", e.Inputs)
}

// IsMissingInputsError checks if an error is a MissingInputsError.
func IsMissingInputsError(err error) (*MissingInputsError, bool) {
	var e *MissingInputsError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// FindAllRequiredInputsInConfig scans every string attribute for ${input:} variables.
// IDs are returned sorted.
func FindAllRequiredInputsInConfig(cfg LaunchConfig) []string {
	seen := make(map[string]bool)
	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case string:
			for _, id := range FindRequiredInputs(val) {
				seen[id] = true
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		case map[string]any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(map[string]any(cfg))

	inputs := make([]string, 0, len(seen))
	for id := range seen {
		inputs = append(inputs, id)
	}
	sort.Strings(inputs)
	return inputs
}

// ValidateInputsProvided checks if all required inputs are provided.
func ValidateInputsProvided(cfg LaunchConfig, inputValues map[string]string) []string {
	var missing []string
	for _, id := range FindAllRequiredInputsInConfig(cfg) {
		if _, ok := inputValues[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
