package fsops

import (
	"os"
	"sync"

	"github.com/petasbytes/code-agent/internal/safety"
)

var (
	rootsMu      sync.Mutex
	rootsSet     bool
	absReadRoot  string
	absWriteRoot string
	initRootsErr error
)

// SetRoots fixes the sandbox roots used by every fsops call. Empty values fall
// back to the working directory (read) and the read root (write). protected
// lists extra directories tools must not touch, e.g. the artifacts directory.
func SetRoots(read, write string, protected ...string) error {
	rootsMu.Lock()
	defer rootsMu.Unlock()
	absReadRoot, absWriteRoot, initRootsErr = safety.InitSandboxRoot(read, write)
	rootsSet = true
	if initRootsErr != nil {
		return initRootsErr
	}
	return safety.ProtectDirs(protected...)
}

// Roots returns the resolved absolute read/write roots.
func Roots() (string, string, error) {
	return getRoots()
}

// getRoots returns the cached absolute read/write roots. When SetRoots was never
// called they are initialised once from AGT_READ_ROOT / AGT_WRITE_ROOT.
func getRoots() (string, string, error) {
	rootsMu.Lock()
	defer rootsMu.Unlock()
	if !rootsSet {
		absReadRoot, absWriteRoot, initRootsErr = safety.InitSandboxRoot(os.Getenv("AGT_READ_ROOT"), os.Getenv("AGT_WRITE_ROOT"))
		rootsSet = true
	}
	return absReadRoot, absWriteRoot, initRootsErr
}
