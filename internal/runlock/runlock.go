// Package runlock keeps two sync runs from working on the same local directory.
package runlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/openmined/solarsync/internal/utils"
)

var ErrLocked = errors.New("another run holds the lock for this directory")

type Lock struct {
	flock *flock.Flock
}

// PathFor returns the lock file guarding localDir, below stateDir/locks.
func PathFor(stateDir, localDir string) string {
	abs, err := filepath.Abs(localDir)
	if err != nil {
		abs = localDir
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return filepath.Join(stateDir, "locks", hex.EncodeToString(sum[:8])+".lock")
}

// Acquire takes the lock without blocking. It returns ErrLocked when it is held.
func Acquire(path string) (*Lock, error) {
	if err := utils.EnsureParent(path); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return &Lock{flock: fl}, nil
}

// Release unlocks and removes the lock file. Calling it on a lock that is not held
// is a no-op.
func (l *Lock) Release() error {
	if l == nil || !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	return os.Remove(l.flock.Path())
}
