//go:build windows

package osutil

import "os/exec"

// SetProcessGroup is a no-op on Windows; process trees are terminated
// via the default exec.Cmd kill behavior.
func SetProcessGroup(cmd *exec.Cmd) {}

// SetProcessGroupKill leaves the default cancel behavior in place, which
// kills the direct child process.
func SetProcessGroupKill(cmd *exec.Cmd) {}
