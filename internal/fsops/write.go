package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/petasbytes/code-agent/internal/safety"
)

// WriteFile writes content to a file addressed by a relative path under the sandbox write root.
// It validates the path via safety and creates parent directories as needed.
func WriteFile(relPath, content string) error {
	absPath, err := writeTarget(relPath)
	if err != nil {
		return err
	}
	return os.WriteFile(absPath, []byte(content), 0o644)
}

// CreateFile is WriteFile for a file that must not exist yet. An existing
// target yields a safety.ToolError with CodeAlreadyExists.
func CreateFile(relPath, content string) error {
	absPath, err := writeTarget(relPath)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return safety.ToolError{Code: safety.CodeAlreadyExists, Message: "file already exists: " + relPath}
		}
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeTarget(relPath string) (string, error) {
	_, writeRoot, err := getRoots()
	if err != nil {
		return "", err
	}
	absPath, err := safety.ValidateWritePath(writeRoot, relPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", err
	}
	return absPath, nil
}
