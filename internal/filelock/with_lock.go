package filelock

import "os"

// WithLock runs action while holding an exclusive lock on the given lock
// file, creating the file if needed. The lock is advisory: it only guards
// against other cooperating processes.
func WithLock(path string, action func() error) error {
	return withLock(path, writeLock, action)
}

// WithRLock runs action while holding a shared lock on the given lock file.
func WithRLock(path string, action func() error) error {
	return withLock(path, readLock, action)
}

func withLock(filename string, lt lockType, action func() error) error {
	lockfile, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = lockfile.Close() }()

	err = lock(lockfile, lt)
	if err != nil {
		return err
	}
	defer func() { _ = Unlock(lockfile) }()
	return action()
}
