// SPDX-License-Identifier: MIT

// Package procgroup starts external encoders in their own process group so
// that canceling a render kills the whole tree, not just the direct child.
// An ffmpeg invocation that shells out (filter scripts, hardware wrappers)
// would otherwise leave orphans behind on timeout.
package procgroup

import "os/exec"

// Set marks the command to start as a process group leader. It must be
// called before cmd.Start.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Kill terminates the command's process group. Safe to call on commands
// that never started or already exited.
func Kill(cmd *exec.Cmd) error {
	return kill(cmd)
}
