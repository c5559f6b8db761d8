package ptysession

import (
	"os/exec"
	"syscall"
)

// exitStatus derives the child's exit code and, if it died from a signal,
// the signal name, from cmd.Wait()'s result.
func exitStatus(cmd *exec.Cmd, waitErr error) (exitCode int, signal *string) {
	state := cmd.ProcessState
	if state == nil {
		return -1, nil
	}

	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		name := status.Signal().String()
		return -1, &name
	}

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, nil
	}

	return state.ExitCode(), nil
}
