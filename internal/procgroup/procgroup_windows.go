// SPDX-License-Identifier: MIT

//go:build windows

package procgroup

import "os/exec"

func set(_ *exec.Cmd) {}

func kill(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
