package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctagard/arduino-debug-mcp/pkg/types"
)

func TestParseFQBN(t *testing.T) {
	f, err := ParseFQBN("arduino:esp32:nano_nora:USBMode=hwcdc,PartitionScheme=default")
	require.NoError(t, err)

	assert.Equal(t, "arduino", f.Vendor)
	assert.Equal(t, "esp32", f.Arch)
	assert.Equal(t, "nano_nora", f.BoardID)
	assert.Equal(t, []Option{
		{Key: "USBMode", Value: "hwcdc"},
		{Key: "PartitionScheme", Value: "default"},
	}, f.Options)
	assert.True(t, f.HasCustomOptions())
	assert.Equal(t, "arduino:esp32:nano_nora", f.Base())
}

func TestParseFQBN_Invalid(t *testing.T) {
	for _, fqbn := range []string{"", "a", "a:b", "a::c", "a:b:c:novalue", "a:b:c:=v"} {
		_, err := ParseFQBN(fqbn)
		assert.Error(t, err, "expected %q to be rejected", fqbn)
	}
}

func TestHasCustomOptions(t *testing.T) {
	assert.False(t, HasCustomOptions("a:b:c"))
	assert.False(t, HasCustomOptions("a:b:c:"))
	assert.True(t, HasCustomOptions("a:b:c:o1=v1"))
	assert.True(t, HasCustomOptions("a:b:c:o1=v1,o2=v2"))
	assert.False(t, HasCustomOptions("a:b"))
}

func TestConfigID(t *testing.T) {
	tests := []struct {
		fqbn       string
		programmer string
		expected   string
	}{
		{"a:b:c", "p", "a:b:c:programmer=p"},
		{"a:b:c", "", "a:b:c"},
		{"a:b:c:o1=v1", "p", "a:b:c:o1=v1,programmer=p"},
		{"a:b:c:o1=v1", "", "a:b:c:o1=v1"},
		{"a:b:c:", "p", "a:b:c:programmer=p"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ConfigID(tt.fqbn, tt.programmer), "ConfigID(%q, %q)", tt.fqbn, tt.programmer)
	}
}

func TestConfigID_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, ConfigID("x:y:z:k=v", "atmel_ice"), ConfigID("x:y:z:k=v", "atmel_ice"))
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name       string
		board      types.BoardIdentifier
		programmer string
		expected   string
	}{
		{"no board name", types.BoardIdentifier{FQBN: "a:b:c"}, "p1", "Arduino (a:b:c:programmer=p1)"},
		{"no board name with options", types.BoardIdentifier{FQBN: "a:b:c:UsbMode=default"}, "p1", "Arduino (a:b:c:UsbMode=default,programmer=p1)"},
		{"no board name with options, no programmer", types.BoardIdentifier{FQBN: "a:b:c:UsbMode=default"}, "", "Arduino (a:b:c:UsbMode=default)"},
		{"board name", types.BoardIdentifier{FQBN: "a:b:c", Name: "board name"}, "p1", "board name (p1)"},
		{"board name, no programmer", types.BoardIdentifier{FQBN: "a:b:c", Name: "board name"}, "", "board name"},
		{"board name with options", types.BoardIdentifier{FQBN: "a:b:c:UsbMode=default", Name: "board name"}, "p1", "board name (UsbMode=default,p1)"},
		{"board name with options, no programmer", types.BoardIdentifier{FQBN: "a:b:c:UsbMode=default", Name: "board name"}, "", "board name (UsbMode=default)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayName(tt.board, tt.programmer))
		})
	}
}
