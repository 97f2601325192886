// Segment identity and lifecycle: attach/detach/delete, and the
// low-level byte accessors every other file builds on.
//
// A Segment is a single contiguous region mapped at a process-chosen
// address (spec §3). All "pointers" inside it are offsets from the
// segment base; offset 0 is reserved and always means NULL. The engine
// never keeps process-local bookkeeping about segment contents — the
// only process-local state is the mapping itself and the OS-level
// crash-recovery lock (lock_unix.go/lock_windows.go).
//
// Grounded on the teacher's db.go Open/Close (os.Root-sandboxed file
// access, crash detection via a stale ".tmp"/dirty flag on Open) and on
// AKJUS-bsc-erigon's use of github.com/edsrzf/mmap-go for memory-mapped
// storage, generalised from a single file mapping to a named shared
// segment per spec §6.
package wgdb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
)

// Mode selects how a segment's backing storage is attached.
type Mode int

const (
	// ModeShared maps a named, file-backed segment visible to other
	// processes that attach the same name (spec §6 "shm_open key,
	// Windows named file-mapping").
	ModeShared Mode = iota
	// ModeLocal maps a private, process-local segment backed by a file
	// in a fresh temporary directory that Detach removes; no name is
	// published for other processes to attach.
	ModeLocal
)

// Segment is the handle object returned by Attach and required by every
// other operation (spec §9 "model it as a handle object... forbid
// implicit globals").
type Segment struct {
	name string
	mode Mode
	dir  string // sandbox root for ModeShared (os.Root pattern)

	root *os.Root
	file *os.File
	data mmap.MMap

	flock *fileLock // OS-level crash-recovery lock (lock_unix.go/lock_windows.go)

	closed atomic.Bool

	// journal is nil unless StartLogging has been called.
	journal *journalWriter
}

// pageSize is used to round requested segment sizes up, per spec §6
// ("Size argument at create time is rounded up to the platform page
// size"). 4096 is the common case across the platforms this engine
// targets; a platform-exact value isn't required for correctness here
// since mmap-go itself maps in OS page granularity.
const pageSize = 4096

func roundToPage(size int64) int64 {
	if size <= 0 {
		size = pageSize
	}
	return (size + pageSize - 1) &^ (pageSize - 1)
}

// Attach creates (if needed) and maps a named shared segment of at
// least size bytes with the given file permission mode.
func Attach(dir, name string, size int64, perm os.FileMode) (*Segment, error) {
	size = roundToPage(size)

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: open dir: %v", ErrAttach, err)
	}

	_, statErr := root.Stat(name)
	fresh := os.IsNotExist(statErr)

	if fresh {
		f, err := root.Create(name)
		if err != nil {
			root.Close()
			return nil, fmt.Errorf("%w: create: %v", ErrAttach, err)
		}
		if err := f.Truncate(size); err != nil {
			f.Close()
			root.Close()
			return nil, fmt.Errorf("%w: truncate: %v", ErrAttach, err)
		}
		f.Close()
		if perm != 0 {
			root.Chmod(name, perm)
		}
	}

	return openSegment(root, dir, name, size, fresh, ModeShared)
}

// AttachExisting maps a previously created named segment without
// creating it if absent.
func AttachExisting(dir, name string) (*Segment, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: open dir: %v", ErrAttach, err)
	}
	info, err := root.Stat(name)
	if err != nil {
		root.Close()
		return nil, fmt.Errorf("%w: stat: %v", ErrAttach, err)
	}
	return openSegment(root, dir, name, info.Size(), false, ModeShared)
}

// AttachLocal maps a private, process-local segment of at least size
// bytes, backed by a file named "segment" in a new directory under the
// default temp directory; Detach removes that directory.
func AttachLocal(size int64) (*Segment, error) {
	size = roundToPage(size)
	dir, err := os.MkdirTemp("", "wgdb-local-*")
	if err != nil {
		return nil, fmt.Errorf("%w: tempdir: %v", ErrAttach, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: open tempdir: %v", ErrAttach, err)
	}
	f, err := root.Create("segment")
	if err != nil {
		root.Close()
		return nil, fmt.Errorf("%w: create: %v", ErrAttach, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		root.Close()
		return nil, fmt.Errorf("%w: truncate: %v", ErrAttach, err)
	}
	f.Close()

	seg, err := openSegment(root, dir, "segment", size, true, ModeLocal)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

func openSegment(root *os.Root, dir, name string, size int64, fresh bool, mode Mode) (*Segment, error) {
	file, err := root.OpenFile(name, os.O_RDWR, 0644)
	if err != nil {
		root.Close()
		return nil, fmt.Errorf("%w: open: %v", ErrAttach, err)
	}

	m, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		file.Close()
		root.Close()
		return nil, fmt.Errorf("%w: mmap: %v", ErrAttach, err)
	}

	seg := &Segment{
		name:  name,
		mode:  mode,
		dir:   dir,
		root:  root,
		file:  file,
		data:  m,
		flock: &fileLock{f: file},
	}

	if fresh {
		if err := seg.initHeader(int64(len(m))); err != nil {
			seg.Detach()
			return nil, err
		}
		return seg, nil
	}

	if err := seg.validateHeader(); err != nil {
		// Crash detection: a dirty flag with no clean shutdown means
		// the process holding the writer lock died mid-mutation. The
		// data is still structurally usable (spec §4.4 "recoverable by
		// an out-of-band administrative action"); we surface
		// ErrCorruptSegment only for magic/version mismatches, not for
		// a merely-dirty flag.
		if err != ErrCorruptSegment {
			seg.Detach()
			return nil, err
		}
		seg.Detach()
		return nil, err
	}

	if seg.dirty() {
		// Force-clear a stale writer: the OS flock could not have
		// survived the crash, so no live holder can exist.
		seg.setU32(hdrLockWriterOff, 0)
		seg.setU32(hdrLockReadersOff, 0)
		seg.setU32(hdrLockWaitersOff, 0)
		seg.setDirty(false)
	}

	return seg, nil
}

// Detach unmaps the segment and releases the file handle. It does not
// delete the backing storage.
func (s *Segment) Detach() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.journal != nil {
		s.journal.close()
	}
	if !s.dirty() {
		// already clean
	} else if s.flock != nil {
		s.setDirty(false)
	}
	var firstErr error
	if s.data != nil {
		if err := s.data.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.flock != nil {
		s.flock.setFile(nil)
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.root != nil {
		if err := s.root.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.mode == ModeLocal {
		os.RemoveAll(s.dir)
	}
	return firstErr
}

// Delete removes a named segment's backing storage. The segment must
// not be attached by any process when this is called.
func Delete(dir, name string) error {
	return os.Remove(filepath.Join(dir, name))
}

// Size returns the total segment size in bytes.
func (s *Segment) Size() int64 { return int64(s.u64(hdrTotalSizeOff)) }

// FreeSize returns a conservative estimate of remaining allocatable
// space: total size minus the current bump offset. Freed blocks on the
// size-class/general freelists are not counted, matching the spirit of
// "recoverable error, caller retries" rather than an exact accounting.
func (s *Segment) FreeSize() int64 {
	return s.Size() - int64(s.u64(hdrBumpOff))
}

func (s *Segment) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// ---- low-level byte accessors over the mapped region ----

func (s *Segment) u32(off int64) uint32 {
	return binary.LittleEndian.Uint32(s.data[off : off+4])
}
func (s *Segment) setU32(off int64, v uint32) {
	binary.LittleEndian.PutUint32(s.data[off:off+4], v)
}
func (s *Segment) u64(off int64) uint64 {
	return binary.LittleEndian.Uint64(s.data[off : off+8])
}
func (s *Segment) setU64(off int64, v uint64) {
	binary.LittleEndian.PutUint64(s.data[off:off+8], v)
}
func (s *Segment) byteAt(off int64) byte { return s.data[off] }
func (s *Segment) setByteAt(off int64, b byte) { s.data[off] = b }

func (s *Segment) bytesAt(off int64, n int) []byte { return s.data[off : off+int64(n)] }

func (s *Segment) putBytes(off int64, b []byte) { copy(s.data[off:off+int64(len(b))], b) }
