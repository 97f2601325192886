// Error taxonomy for the database engine.
//
// Every failure is a returned value; the core never panics or unwinds
// through the lock primitive. Sentinel errors identify the class of
// failure so callers can switch on errors.Is without parsing strings.
package wgdb

import "errors"

// Sentinel errors returned by engine operations. See spec §7 for the
// full taxonomy and propagation rules.
var (
	// ErrAttach is returned when a segment cannot be created, found, or
	// mapped. Terminal for the call; the handle is not usable.
	ErrAttach = errors.New("wgdb: cannot attach segment")

	// ErrOutOfSpace is returned when the allocator cannot satisfy a
	// request from any size class or the general freelist. Recoverable:
	// the caller may retry at a higher level or abort the logical op.
	ErrOutOfSpace = errors.New("wgdb: segment out of space")

	// ErrOutOfRange is returned when a column/field index falls outside
	// a record's arity. Programmer error, non-retryable.
	ErrOutOfRange = errors.New("wgdb: field index out of range")

	// ErrTypeMismatch is returned when a decode or comparison sees a
	// word whose kind does not admit the requested operation.
	ErrTypeMismatch = errors.New("wgdb: type mismatch")

	// ErrHasReferences is returned when delete is denied because the
	// record's parent chain is non-empty.
	ErrHasReferences = errors.New("wgdb: record has references")

	// ErrCorruptSegment is returned when the header magic or version
	// does not match on attach or dump import.
	ErrCorruptSegment = errors.New("wgdb: corrupt segment")

	// ErrInvalidConstraint is returned by Fetch when the constraint the
	// planner chose as driver has a comparator that no index lookup
	// serves. A field that cannot be compared with a constraint's value
	// does not produce it: that candidate simply does not match. The
	// query object remains in Built state.
	ErrInvalidConstraint = errors.New("wgdb: invalid query constraint")

	// ErrNoSuchColumn is returned by OpenIndex and DropIndex when no
	// index is registered under the given id. Queries do not return it:
	// a constraint on a column beyond a candidate's arity makes that
	// candidate not match.
	ErrNoSuchColumn = errors.New("wgdb: no such column")

	// ErrClosed is returned when operating on a detached segment.
	ErrClosed = errors.New("wgdb: segment is detached")

	// ErrIllegalWord is returned by operations that receive the
	// distinguished Illegal sentinel word where a valid word is required.
	ErrIllegalWord = errors.New("wgdb: illegal word")

	// ErrBadState is returned when a query operation is attempted from
	// an incompatible state (e.g. Fetch on a Freed query).
	ErrBadState = errors.New("wgdb: query object in wrong state")

	// ErrCorruptJournal is returned by replay when the log is truncated
	// or a record's framing is malformed past the last well-formed entry.
	ErrCorruptJournal = errors.New("wgdb: corrupt or truncated journal")

	// ErrIndexExists is returned by CreateIndex when an equivalent index
	// (same column, kind and template) is already registered.
	ErrIndexExists = errors.New("wgdb: equivalent index already exists")

	// ErrIndexFull is returned when the named-index table has no free
	// slot for a new registration.
	ErrIndexFull = errors.New("wgdb: index table full")

	// ErrUnsupportedRange is returned by lookupRange against a hashed
	// (equality-only) index.
	ErrUnsupportedRange = errors.New("wgdb: range lookup on hashed index")

	// ErrDecompress mirrors the teacher's compression-failure sentinel;
	// wrapped with the underlying codec error via fmt.Errorf("%w: ...").
	ErrDecompress = errors.New("wgdb: decompress failed")

	// ErrTooManyReaders is returned by AcquireReadContext when every
	// slot in the bounded reader-token table is already claimed (spec
	// §4.4 "bounded-range" tokens); AcquireRead reports the same case
	// by returning a negative token.
	ErrTooManyReaders = errors.New("wgdb: too many concurrent readers")
)

// LockTimeout is constructed by surfacing layers that implement their own
// deadline around a blocking start_read/start_write call; the core never
// produces it (spec §7: "core does not [impose LockTimeout]").
type LockTimeout struct {
	Op string
}

func (e *LockTimeout) Error() string { return "wgdb: timed out waiting for lock: " + e.Op }
