//go:build windows

package cli

import (
	"os/exec"
	"syscall"
)

// setProcAttr sets platform-specific process attributes for the spawned CLI.
// On Windows, we create a new process group so console interrupts are not shared.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
