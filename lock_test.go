package wgdb

import (
	"os"
	"testing"
)

func TestFileLockSharedThenExclusive(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "flock")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	var l fileLock
	l.setFile(f)

	if err := l.Lock(LockShared); err != nil {
		t.Fatalf("Lock(shared): %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := l.Lock(LockExclusive); err != nil {
		t.Fatalf("Lock(exclusive): %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

// TestFileLockNilHandleIsNoop covers the post-setFile(nil) drain path
// used by Detach: further Lock/Unlock calls must not block or error.
func TestFileLockNilHandleIsNoop(t *testing.T) {
	var l fileLock
	l.setFile(nil)
	if err := l.Lock(LockExclusive); err != nil {
		t.Fatalf("Lock on nil handle: %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("Unlock on nil handle: %v", err)
	}
}
