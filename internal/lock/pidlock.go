// Package lock keeps a single daemon per user. The daemon holds an exclusive
// flock on its PID file for its whole lifetime; other commands read the PID
// from the same file to signal it.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrHeld is returned by TryAcquire when another process holds the lock.
var ErrHeld = errors.New("another halen daemon is already running")

// ErrNotRunning is returned when no daemon holds the lock.
var ErrNotRunning = errors.New("halen daemon is not running")

// PIDLock is a held PID file lock.
type PIDLock struct {
	path     string
	file     *os.File
	released bool
	mu       sync.Mutex
}

// TryAcquire locks path without blocking and writes the current PID into it.
// It returns ErrHeld when the lock is taken.
func TryAcquire(path string) (*PIDLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	if err := writePID(file, os.Getpid()); err != nil {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
		return nil, err
	}

	return &PIDLock{path: path, file: file}, nil
}

func writePID(file *os.File, pid int) error {
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate lock file: %w", err)
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0); err != nil {
		return fmt.Errorf("failed to write pid: %w", err)
	}
	return file.Sync()
}

// Path returns the lock file location.
func (l *PIDLock) Path() string {
	return l.path
}

// Release unlocks and removes the PID file. Calling it twice is harmless.
func (l *PIDLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil
	}
	l.released = true

	// Remove while still locked so a new daemon never sees our PID.
	removeErr := os.Remove(l.path)
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}
	if err := l.file.Close(); err != nil {
		return err
	}
	if removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("failed to remove lock file: %w", removeErr)
	}
	return nil
}

// ReadPID returns the PID of the daemon holding path. A file that exists but
// is not locked belongs to a dead daemon and yields ErrNotRunning.
func ReadPID(path string) (int, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, ErrNotRunning
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open lock file: %w", err)
	}
	defer file.Close()

	err = unix.Flock(int(file.Fd()), unix.LOCK_SH|unix.LOCK_NB)
	if err == nil {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		return 0, ErrNotRunning
	}
	if !errors.Is(err, unix.EWOULDBLOCK) {
		return 0, fmt.Errorf("failed to probe lock: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read lock file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("lock file %s has no valid pid", path)
	}
	return pid, nil
}

// SignalToggle asks the running daemon to enable or disable interception.
func SignalToggle(path string) (int, error) {
	pid, err := ReadPID(path)
	if err != nil {
		return 0, err
	}
	if err := unix.Kill(pid, unix.SIGUSR1); err != nil {
		return 0, fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}
	return pid, nil
}
