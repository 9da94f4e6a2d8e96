//go:build !windows

package cli

import (
	"os/exec"
	"syscall"
)

// setProcAttr sets platform-specific process attributes for the spawned CLI.
// On Unix, the CLI gets its own process group so an interrupt delivered to the
// server's terminal does not reach an in-flight invocation.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
