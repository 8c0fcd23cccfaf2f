package instance

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock acquires an exclusive file lock so only one server per port runs
// from a state directory. The caller must Release the returned lock.
func Lock(stateDir string, port int) (*flock.Flock, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	fl := flock.New(lockPath(stateDir, port))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another sharetail server is already running on port %d", port)
	}
	return fl, nil
}

// WriteAddr records the listener address next to the lock.
func WriteAddr(stateDir string, port int, addr string) error {
	return os.WriteFile(addrPath(stateDir, port), []byte(addr), 0o600)
}

// Release removes the address file and releases the lock.
func Release(stateDir string, port int, fl *flock.Flock) {
	_ = os.Remove(addrPath(stateDir, port))
	if fl != nil {
		_ = fl.Unlock()
	}
}

// StateDir returns the default directory for lock files.
func StateDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "sharetail")
	}
	return filepath.Join(os.TempDir(), "sharetail")
}

func lockPath(dir string, port int) string {
	return filepath.Join(dir, fmt.Sprintf("sharetail-%d.lock", port))
}

func addrPath(dir string, port int) string {
	return filepath.Join(dir, fmt.Sprintf("sharetail-%d.addr", port))
}
