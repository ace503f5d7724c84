package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status reports whether an external binary is usable.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// resolveBinary returns the executable path for binary. Values containing a
// path separator are checked in place; bare names go through PATH.
func resolveBinary(binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", fmt.Errorf("command not configured")
	}
	if !strings.ContainsRune(binary, filepath.Separator) {
		resolved, err := exec.LookPath(binary)
		if err != nil {
			return "", fmt.Errorf("binary %q not found", binary)
		}
		return resolved, nil
	}
	info, err := os.Stat(binary)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", binary)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%q is not executable", binary)
	}
	return binary, nil
}
