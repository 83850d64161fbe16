package pack

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func testContainerPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "suite.evipack")
}

func TestMarkerPath(t *testing.T) {
	got := MarkerPath("/tmp/reports/release.evipack")
	want := filepath.Join("/tmp/reports", ".~lock.release.evipack#")
	if got != want {
		t.Errorf("marker path mismatch: got %s, want %s", got, want)
	}
}

func TestLock_Acquire_Success(t *testing.T) {
	path := testContainerPath(t)

	lock := NewLock(path, nil)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(MarkerPath(path))
	if err != nil {
		t.Fatalf("failed to read lock marker: %v", err)
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		t.Fatalf("failed to parse PID from lock marker: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("lock marker PID mismatch: got %d, want %d", pid, os.Getpid())
	}
}

func TestLock_Acquire_AlreadyHeld(t *testing.T) {
	path := testContainerPath(t)

	first := NewLock(path, nil)
	if err := first.Acquire(); err != nil {
		t.Fatalf("failed to acquire first lock: %v", err)
	}

	second := NewLock(path, nil)
	err := second.Acquire()
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
}

func TestLock_Acquire_RaceCondition(t *testing.T) {
	path := testContainerPath(t)

	const numGoroutines = 10
	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := NewLock(path, nil)
			if err := lock.Acquire(); err == nil {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if count := successCount.Load(); count != 1 {
		t.Errorf("expected exactly 1 successful acquire, got %d", count)
	}
}

func TestLock_Verify_Intact(t *testing.T) {
	path := testContainerPath(t)

	lock := NewLock(path, nil)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	if err := lock.Verify(); err != nil {
		t.Errorf("unexpected error verifying intact lock: %v", err)
	}
}

func TestLock_Verify_RecreatesRemovedMarker(t *testing.T) {
	path := testContainerPath(t)

	lock := NewLock(path, nil)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	// Simulate an external cleanup that removed the marker.
	if err := os.Remove(MarkerPath(path)); err != nil {
		t.Fatalf("failed to remove marker: %v", err)
	}

	if err := lock.Verify(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(MarkerPath(path)); err != nil {
		t.Errorf("marker should have been recreated: %v", err)
	}
}

func TestLock_Verify_LostToCompetitor(t *testing.T) {
	path := testContainerPath(t)

	lock := NewLock(path, nil)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	// An external removal followed by a competing acquirer in another
	// process, modeled by a marker carrying a foreign PID.
	if err := os.Remove(MarkerPath(path)); err != nil {
		t.Fatalf("failed to remove marker: %v", err)
	}
	foreign := strconv.Itoa(os.Getpid() + 1)
	if err := os.WriteFile(MarkerPath(path), []byte(foreign), 0644); err != nil {
		t.Fatalf("failed to plant competing marker: %v", err)
	}

	err := lock.Verify()
	if !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
}

func TestLock_Verify_ForeignMarkerBody(t *testing.T) {
	path := testContainerPath(t)

	lock := NewLock(path, nil)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	// The marker file survived but another writer's PID is inside it.
	foreign := strconv.Itoa(os.Getpid() + 1)
	if err := os.WriteFile(MarkerPath(path), []byte(foreign), 0644); err != nil {
		t.Fatalf("failed to overwrite marker: %v", err)
	}

	err := lock.Verify()
	if !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
}

func TestLock_Release(t *testing.T) {
	path := testContainerPath(t)

	lock := NewLock(path, nil)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	lock.Release()

	if _, err := os.Stat(MarkerPath(path)); !os.IsNotExist(err) {
		t.Error("marker should be removed after release")
	}
}

func TestLock_Release_NotHeld(t *testing.T) {
	path := testContainerPath(t)

	// Releasing an unheld lock must not panic or create anything.
	lock := NewLock(path, nil)
	lock.Release()

	if _, err := os.Stat(MarkerPath(path)); !os.IsNotExist(err) {
		t.Error("release of unheld lock should leave no marker behind")
	}
}

func TestLock_AcquireAfterRelease(t *testing.T) {
	path := testContainerPath(t)

	lock := NewLock(path, nil)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	lock.Release()

	if err := lock.Acquire(); err != nil {
		t.Fatalf("failed to re-acquire lock after release: %v", err)
	}
}
