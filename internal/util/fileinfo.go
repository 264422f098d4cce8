package util

import (
	"os"
	"path/filepath"
)

// ExecutableDir returns the directory holding the running binary, falling
// back to the working directory when it cannot be resolved.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
