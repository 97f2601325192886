// In-segment multi-reader/single-writer lock (spec §4.4 C4): the
// actual concurrency-control primitive every read/write operation
// serialises through. State lives in the segment header
// (hdrLockReadersOff/WriterOff/WaitersOff/TokenOff) so any process
// attaching the segment participates in the same lock, with no
// process-local bookkeeping beyond the unsafe.Pointer views in
// atomics.go.
//
// There is no cross-process futex available portably without pulling
// in a platform-specific syscall wrapper beyond what the teacher's
// stack already uses, so waiting is a spin loop backed off with
// runtime.Gosched and a short sleep — acceptable because critical
// sections here are short (a handful of word-sized field writes), not
// long-held locks.
//
// Per spec §7, the core itself never times out a blocking acquire;
// LockTimeout is only produced by a surfacing layer that wraps a call
// with its own deadline. AcquireReadContext/AcquireWriteContext give
// that layer a context.Context to cancel on.
package wgdb

import (
	"context"
	"os"
	"runtime"
	"sync/atomic"
	"time"
)

const lockSpinSleep = 200 * time.Microsecond

// ReadToken is the bounded-range handle start_read returns and end_read
// requires (spec §4.4): a reader-slot index rather than a pointer, so a
// holder that died without calling ReleaseRead can be identified later
// by checking whether the pid recorded in its slot is still alive.
type ReadToken int32

// noReadToken is returned alongside an error; it is never a valid slot.
const noReadToken ReadToken = -1

// AcquireRead blocks until a read lock is held, returning the token that
// must be presented to ReleaseRead. Readers yield to a waiting or active
// writer (writer priority), so a steady stream of readers cannot starve
// a writer indefinitely. If every reader slot is already claimed it
// returns a negative token without holding the lock.
func (s *Segment) AcquireRead() ReadToken {
	tok, _ := s.acquireRead(context.Background())
	return tok
}

// AcquireReadContext blocks until a read lock is held or ctx is done,
// returning a *LockTimeout in the latter case, or ErrTooManyReaders
// when every reader slot is already claimed.
func (s *Segment) AcquireReadContext(ctx context.Context) (ReadToken, error) {
	return s.acquireRead(ctx)
}

func (s *Segment) acquireRead(ctx context.Context) (ReadToken, error) {
	waiters := s.int32At(hdrLockWaitersOff)
	readers := s.int32At(hdrLockReadersOff)
	writer := s.int32At(hdrLockWriterOff)
	for {
		for atomic.LoadInt32(waiters) > 0 || atomic.LoadInt32(writer) != 0 {
			if err := spinWait(ctx); err != nil {
				return noReadToken, err
			}
		}
		atomic.AddInt32(readers, 1)
		if atomic.LoadInt32(writer) != 0 {
			// A writer slipped in between the check and the increment;
			// back out and retry.
			atomic.AddInt32(readers, -1)
			continue
		}
		tok, err := s.claimReaderSlot()
		if err != nil {
			atomic.AddInt32(readers, -1)
			return noReadToken, err
		}
		return tok, nil
	}
}

// ReleaseRead releases a previously acquired read lock, given the token
// returned by the matching AcquireRead/AcquireReadContext call.
func (s *Segment) ReleaseRead(tok ReadToken) {
	s.releaseReaderSlot(tok)
	atomic.AddInt32(s.int32At(hdrLockReadersOff), -1)
}

// claimReaderSlot finds a free slot in the bounded reader-slot table and
// stakes it with this process's pid, returning its index as the token.
func (s *Segment) claimReaderSlot() (ReadToken, error) {
	pid := uint32(os.Getpid())
	for i := 0; i < maxReaderSlots; i++ {
		ptr := s.uint32At(readerSlotTableOff + int64(i)*readerSlotSize)
		if atomic.CompareAndSwapUint32(ptr, 0, pid) {
			return ReadToken(i), nil
		}
	}
	return noReadToken, ErrTooManyReaders
}

func (s *Segment) releaseReaderSlot(tok ReadToken) {
	if tok < 0 || int(tok) >= maxReaderSlots {
		return
	}
	atomic.StoreUint32(s.uint32At(readerSlotTableOff+int64(tok)*readerSlotSize), 0)
}

// AcquireWrite blocks until the exclusive write lock is held.
func (s *Segment) AcquireWrite() {
	_ = s.acquireWrite(context.Background())
}

// AcquireWriteContext blocks until the write lock is held or ctx is
// done, returning a *LockTimeout in the latter case.
func (s *Segment) AcquireWriteContext(ctx context.Context) error {
	return s.acquireWrite(ctx)
}

func (s *Segment) acquireWrite(ctx context.Context) error {
	waiters := s.int32At(hdrLockWaitersOff)
	writer := s.int32At(hdrLockWriterOff)
	readers := s.int32At(hdrLockReadersOff)

	atomic.AddInt32(waiters, 1)
	for !atomic.CompareAndSwapInt32(writer, 0, 1) {
		if err := spinWait(ctx); err != nil {
			atomic.AddInt32(waiters, -1)
			return err
		}
	}
	for atomic.LoadInt32(readers) > 0 {
		if err := spinWait(ctx); err != nil {
			atomic.StoreInt32(writer, 0)
			atomic.AddInt32(waiters, -1)
			return err
		}
	}
	atomic.AddInt32(waiters, -1)
	return nil
}

// ReleaseWrite releases the exclusive write lock and advances the
// lock token, so long-lived readers (e.g. a streaming query cursor)
// can detect that a write happened since they last checked.
func (s *Segment) ReleaseWrite() {
	atomic.AddUint32(s.uint32At(hdrLockTokenOff), 1)
	atomic.StoreInt32(s.int32At(hdrLockWriterOff), 0)
}

// LockToken returns the current write-lock generation counter.
func (s *Segment) LockToken() uint32 {
	return atomic.LoadUint32(s.uint32At(hdrLockTokenOff))
}

func spinWait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return &LockTimeout{Op: "segment lock"}
	default:
	}
	runtime.Gosched()
	time.Sleep(lockSpinSleep)
	return nil
}
