//go:build !windows

package launchconfig

import "github.com/google/renameio/v2"

// writeFile atomically replaces path with data.
func writeFile(path string, data []byte) error {
	return renameio.WriteFile(path, data, 0o644)
}
