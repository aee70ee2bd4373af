package fsops

import (
	"errors"
	"io/fs"
	"os"

	"github.com/petasbytes/code-agent/internal/safety"
)

// ListFiles lists non-recursive directory entries for a relative directory path
// under the sandbox. Directories are suffixed by "/". Order follows os.ReadDir
// (lexical by filename).
func ListFiles(relDir string) ([]string, error) {
	readRoot, _, err := getRoots()
	if err != nil {
		return nil, err
	}

	if relDir == "" {
		relDir = "."
	}
	absDir, err := safety.ValidateRelPath(readRoot, relDir)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(absDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, safety.ToolError{Code: safety.CodeNotFound, Message: "path does not exist: " + relDir}
		}
		return nil, err
	}
	if !fi.IsDir() {
		return nil, safety.ToolError{Code: safety.CodeNotADirectory, Message: "path is not a directory: " + relDir}
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}
