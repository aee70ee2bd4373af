package fsops

import (
	"errors"
	"io/fs"
	"os"

	"github.com/petasbytes/code-agent/internal/safety"
)

// ReadFile reads a file addressed by a relative path under the sandbox read root.
// Policy violations and missing/irregular targets come back as safety.ToolError.
func ReadFile(relPath string) (string, error) {
	readRoot, _, err := getRoots()
	if err != nil {
		return "", err
	}

	absPath, err := safety.ValidateRelPath(readRoot, relPath)
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", safety.ToolError{Code: safety.CodeNotFound, Message: "file not found: " + relPath}
		}
		return "", err
	}
	if fi.IsDir() {
		return "", safety.ToolError{Code: safety.CodeNotAFile, Message: "path is a directory, not a file: " + relPath}
	}

	b, err := os.ReadFile(absPath)
	if err != nil {
		return "", err // I/O issue, not policy
	}
	return string(b), nil
}
