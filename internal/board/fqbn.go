// Package board parses fully qualified board names (FQBN) and derives the
// configuration identity and display name of a board+programmer combination.
//
// An FQBN has the shape vendor:arch:boardId[:key1=value1,key2=value2,...]. The
// configuration ID joins tool output, user overrides, and the persisted launch
// store, so it must be a deterministic function of the FQBN and the programmer.
package board

import (
	"fmt"
	"strings"

	"github.com/ctagard/arduino-debug-mcp/pkg/types"
)

// Option is a single key=value custom board option.
type Option struct {
	Key   string
	Value string
}

// FQBN is a parsed fully qualified board name.
type FQBN struct {
	Vendor  string
	Arch    string
	BoardID string
	Options []Option // in the order they appear in the string

	raw string
}

// ParseFQBN parses an FQBN string. It fails when there are fewer than three
// colon-delimited segments, when any of them is empty, or when an option is
// not a key=value pair.
func ParseFQBN(s string) (*FQBN, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid FQBN %q: expected vendor:arch:boardId", s)
	}
	for i, part := range parts[:3] {
		if part == "" {
			return nil, fmt.Errorf("invalid FQBN %q: empty segment %d", s, i+1)
		}
	}

	f := &FQBN{
		Vendor:  parts[0],
		Arch:    parts[1],
		BoardID: parts[2],
		raw:     s,
	}

	if len(parts) == 4 && parts[3] != "" {
		for _, pair := range strings.Split(parts[3], ",") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid FQBN %q: malformed option %q", s, pair)
			}
			f.Options = append(f.Options, Option{Key: key, Value: value})
		}
	}

	return f, nil
}

// HasCustomOptions reports whether the FQBN carries at least one custom option.
func (f *FQBN) HasCustomOptions() bool {
	return len(f.Options) > 0
}

// Base returns vendor:arch:boardId without any options.
func (f *FQBN) Base() string {
	return f.Vendor + ":" + f.Arch + ":" + f.BoardID
}

// String returns the FQBN exactly as it was parsed.
func (f *FQBN) String() string {
	return f.raw
}

// HasCustomOptions reports whether fqbn has a fourth segment with at least one
// key=value pair. Malformed strings report false.
func HasCustomOptions(fqbn string) bool {
	f, err := ParseFQBN(fqbn)
	if err != nil {
		return false
	}
	return f.HasCustomOptions()
}

// ConfigID derives the configuration identity of fqbn and programmer.
//
// Without a programmer the FQBN is returned unchanged. Otherwise the programmer
// becomes one more board option: appended with a comma when options already
// exist, or as a new colon segment when they do not, so the ID is a valid FQBN
// either way.
func ConfigID(fqbn, programmer string) string {
	if programmer == "" {
		return fqbn
	}
	f, err := ParseFQBN(fqbn)
	if err != nil {
		// Callers validate before reaching here; keep the ID deterministic anyway.
		return fqbn + ":programmer=" + programmer
	}
	if f.HasCustomOptions() {
		return f.String() + ",programmer=" + programmer
	}
	// An empty trailing options segment ("a:b:c:") is dropped
	return f.Base() + ":programmer=" + programmer
}

// DisplayName returns the launch configuration name for a board and programmer.
func DisplayName(b types.BoardIdentifier, programmer string) string {
	if b.Name == "" {
		return "Arduino (" + ConfigID(b.FQBN, programmer) + ")"
	}

	f, err := ParseFQBN(b.FQBN)
	if err == nil && f.HasCustomOptions() {
		tokens := make([]string, 0, len(f.Options)+1)
		for _, opt := range f.Options {
			tokens = append(tokens, opt.Key+"="+opt.Value)
		}
		if programmer != "" {
			tokens = append(tokens, programmer)
		}
		return b.Name + " (" + strings.Join(tokens, ",") + ")"
	}

	if programmer != "" {
		return b.Name + " (" + programmer + ")"
	}
	return b.Name
}
