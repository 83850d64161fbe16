package pack

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Lock provides advisory, cooperative mutual exclusion over one container
// path. The marker is a sibling file named ".~lock.<container-filename>#"
// whose body is the holder's decimal PID. It protects cooperating writers
// from each other; it is not a security boundary.
type Lock struct {
	path   string // marker path, not the container path
	logger *log.Logger
}

// NewLock creates a lock coordinator for the container at containerPath.
// Release failures are reported through logger and never escalated; a nil
// logger discards them.
func NewLock(containerPath string, logger *log.Logger) *Lock {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Lock{
		path:   MarkerPath(containerPath),
		logger: logger,
	}
}

// MarkerPath returns the lock marker path for a container path.
func MarkerPath(containerPath string) string {
	dir := filepath.Dir(containerPath)
	name := filepath.Base(containerPath)
	return filepath.Join(dir, ".~lock."+name+"#")
}

// Acquire creates the marker exclusively and writes the current PID into it.
// If the marker already exists the package has another writer and the error
// wraps ErrLockHeld.
func (l *Lock) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			if holder := l.holderPID(); holder != "" {
				return fmt.Errorf("%w (PID %s)", ErrLockHeld, holder)
			}
			return ErrLockHeld
		}
		return fmt.Errorf("failed to create lock marker: %w", err)
	}

	_, writeErr := fmt.Fprintf(f, "%d", os.Getpid())
	f.Close()
	if writeErr != nil {
		os.Remove(l.path)
		return fmt.Errorf("failed to write lock marker: %w", writeErr)
	}
	return nil
}

// Verify confirms the marker still exists and still records this process as
// the holder; a marker carrying a foreign PID means a competitor re-acquired
// after an external removal, and the error wraps ErrLockLost. If the marker
// was removed it is recreated as a courtesy; if recreation loses a race with
// a competing acquirer, exclusivity is likewise gone.
func (l *Lock) Verify() error {
	data, err := os.ReadFile(l.path)
	if err == nil {
		holder := strings.TrimSpace(string(data))
		if holder != strconv.Itoa(os.Getpid()) {
			return fmt.Errorf("%w: marker now held by PID %s", ErrLockLost, holder)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read lock marker: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return ErrLockLost
		}
		return fmt.Errorf("%w: %v", ErrLockLost, err)
	}

	_, writeErr := fmt.Fprintf(f, "%d", os.Getpid())
	f.Close()
	if writeErr != nil {
		l.logger.Warn("failed to rewrite recreated lock marker", "path", l.path, "err", writeErr)
	}
	return nil
}

// Release removes the marker. It runs during unconditional cleanup, so
// failures are logged and never returned; releasing an unheld lock is a
// no-op.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("failed to remove lock marker", "path", l.path, "err", err)
	}
}

// holderPID reads the PID recorded in an existing marker, for error messages.
func (l *Lock) holderPID() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
