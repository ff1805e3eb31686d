// Package binary locates external helper executables on PATH.
package binary

import "os/exec"

// Available reports whether binName can be found on PATH, returning its
// resolved absolute path when it can.
func Available(binName string) (string, bool) {
	path, err := exec.LookPath(binName)

	return path, err == nil
}
