//go:build unix

package osascript

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own process group so that signals
// reach the interpreter and anything it spawned (negative PID = all
// processes in the group).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// interrupt sends SIGTERM to the child's process group.
func interrupt(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

// kill sends SIGKILL to the child's process group. ESRCH from a group that
// already exited is expected and harmless.
func kill(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
