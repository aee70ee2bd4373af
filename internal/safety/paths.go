// Package safety provides helpers for sandboxed file access.
package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// Error codes carried by ToolError.
const (
	CodeOutsideSandbox = "ERR_PATH_OUTSIDE_SANDBOX"
	CodeDeniedRead     = "ERR_DENIED_READ"
	CodeDeniedWrite    = "ERR_DENIED_WRITE"
	CodeNotAFile       = "ERR_NOT_A_FILE"
	CodeNotADirectory  = "ERR_NOT_A_DIRECTORY"
	CodeNotFound       = "ERR_NOT_FOUND"
	CodeAlreadyExists  = "ERR_ALREADY_EXISTS"
)

// ToolError is a machine-readable error body for surfacing back to the model as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool_result payloads small.
func (e ToolError) Error() string {
	b, _ := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(e)
	return string(b)
}

// protectedDirs may never be read or written by tools.
var protectedDirs = []string{".git", ".agent"}

// protectedBasenames may not be written at any depth.
var protectedBasenames = map[string]struct{}{
	"go.mod": {},
	"go.sum": {},
}

var (
	extraMu        sync.RWMutex
	extraProtected []string // absolute, symlink-resolved
)

// ProtectDirs replaces the set of extra directories that tools may neither
// read nor write, such as a relocated artifacts directory. Relative paths
// resolve against the working directory.
func ProtectDirs(dirs ...string) error {
	resolved := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			return fmt.Errorf("abs(%s): %w", d, err)
		}
		resolved = append(resolved, resolveExisting(abs))
	}
	extraMu.Lock()
	extraProtected = resolved
	extraMu.Unlock()
	return nil
}

func underExtraProtected(candidate string) bool {
	extraMu.RLock()
	defer extraMu.RUnlock()
	for _, d := range extraProtected {
		if candidate == d || strings.HasPrefix(candidate, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// InitSandboxRoot resolves absolute sandbox roots for read and write operations.
func InitSandboxRoot(readRoot, writeRoot string) (absRead string, absWrite string, err error) {
	// Default readRoot to CWD when empty
	if readRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("getwd: %w", err)
		}
		readRoot = cwd
	}
	if writeRoot == "" {
		writeRoot = readRoot
	}

	readRoot, err = filepath.Abs(readRoot)
	if err != nil {
		return "", "", fmt.Errorf("abs(readRoot): %w", err)
	}
	writeRoot, err = filepath.Abs(writeRoot)
	if err != nil {
		return "", "", fmt.Errorf("abs(writeRoot): %w", err)
	}

	// Resolve symlinks where possible so boundary checks compare like with like.
	if r, err := filepath.EvalSymlinks(readRoot); err == nil {
		readRoot = r
	}
	if w, err := filepath.EvalSymlinks(writeRoot); err == nil {
		writeRoot = w
	}
	return readRoot, writeRoot, nil
}

// ValidateRelPath resolves relPath against absRoot and returns an absolute path
// inside the sandbox. It rejects absolute inputs, parent traversal, and symlink
// escapes, and denies reads under .git/ and .agent/. On violation, returns a ToolError.
func ValidateRelPath(absRoot, relPath string) (string, error) {
	candidate, rel, err := resolve(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if underProtectedDir(rel) {
		return "", ToolError{Code: CodeDeniedRead, Message: "reads under .git/ or .agent/ are not allowed"}
	}
	if underExtraProtected(candidate) {
		return "", ToolError{Code: CodeDeniedRead, Message: "reads under the artifacts directory are not allowed"}
	}
	return candidate, nil
}

// ValidateWritePath applies the same boundary checks as ValidateRelPath and
// additionally denies writes to go.mod/go.sum at any depth.
func ValidateWritePath(absRoot, relPath string) (string, error) {
	candidate, rel, err := resolve(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if underProtectedDir(rel) {
		return "", ToolError{Code: CodeDeniedWrite, Message: "writes under .git/ or .agent/ are not allowed"}
	}
	if underExtraProtected(candidate) {
		return "", ToolError{Code: CodeDeniedWrite, Message: "writes under the artifacts directory are not allowed"}
	}
	if _, ok := protectedBasenames[filepath.Base(rel)]; ok {
		return "", ToolError{Code: CodeDeniedWrite, Message: "writes to " + filepath.Base(rel) + " are not allowed"}
	}
	if rel == "." {
		return "", ToolError{Code: CodeDeniedWrite, Message: "cannot write to the sandbox root itself"}
	}
	return candidate, nil
}

// resolve joins relPath onto absRoot, follows symlinks on the deepest existing
// ancestor and returns the candidate plus its slash-separated root-relative form.
func resolve(absRoot, relPath string) (string, string, error) {
	if filepath.IsAbs(relPath) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "absolute paths are not allowed"}
	}
	cleaned := filepath.Clean(relPath)
	if cleaned == "" {
		cleaned = "."
	}
	candidate := resolveExisting(filepath.Join(absRoot, cleaned))

	// filepath.Rel is robust against partial prefix matches (/root vs /rootx).
	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "requested path resolves outside the sandbox root"}
	}
	return candidate, filepath.ToSlash(rel), nil
}

// resolveExisting evaluates symlinks on p, or on its deepest existing ancestor
// when p (or some of its parents) do not exist yet.
func resolveExisting(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	var tail []string
	cur := p
	for {
		parent := filepath.Dir(cur)
		tail = append([]string{filepath.Base(cur)}, tail...)
		if parent == cur {
			return p
		}
		if r, err := filepath.EvalSymlinks(parent); err == nil {
			return filepath.Join(append([]string{r}, tail...)...)
		}
		cur = parent
	}
}

func underProtectedDir(rel string) bool {
	for _, d := range protectedDirs {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}
