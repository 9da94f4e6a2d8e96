//go:build windows

package launchconfig

import "os"

// writeFile replaces path with data. renameio does not support Windows; writers
// are still serialized by the store lock.
func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
