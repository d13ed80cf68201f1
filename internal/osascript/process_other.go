//go:build !unix

package osascript

import (
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

// interrupt kills the child: there is no graceful signal to send outside unix.
func interrupt(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
