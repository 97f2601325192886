// Fixed binary layout of every structure that lives inside the shared
// segment. All of the engine's "pointers" are byte offsets from the
// segment base (offset 0 is reserved and always means NULL — spec §3),
// so every structure below is described purely in terms of byte offsets
// and field widths rather than Go struct layout. Centralising the
// layout here (instead of scattering magic offsets through word.go,
// record.go, index.go, intern.go) is the single place that has to stay
// consistent with itself.
//
// This plays the same role the teacher's fixed JSON-prefix offsets play
// in record.go ("{"idx":N,"_id":"XXXXXXXXXXXXXXXX","_ts":NNNNNNNNNNNNN" —
// fixed positions read without a full parse"), just for a binary format
// instead of JSONL.
package wgdb

const (
	wordSize  = 8 // bytes per encoded word / machine word
	alignment = 8 // all allocations are word-aligned (spec §4.1)
)

// ---- Segment header (spec §3 "Segment header"): fixed, never moves ----

const (
	hdrMagicOff       = 0  // [4]byte "WGDB"
	hdrVersionOff     = 4  // uint32
	hdrTotalSizeOff   = 8  // uint64: total segment size in bytes
	hdrBumpOff        = 16 // uint64: next never-allocated byte offset
	hdrGenFreeOff     = 24 // uint64: head of general first-fit freelist
	hdrRecListHeadOff = 32 // uint64: root, offset of first record
	hdrRecListTailOff = 40 // uint64: root, offset of last record
	hdrIndexTableOff  = 48 // uint64: root, offset of named-index table
	hdrInternTableOff = 56 // uint64: root, offset of pooled-string hash
	hdrRecordCountOff = 64 // uint64: number of live records

	// Reader-writer lock primitive (spec §4.4). Each field is accessed
	// with sync/atomic, so each must sit at a naturally aligned offset.
	hdrLockReadersOff   = 72 // int32: count of active readers
	hdrLockWriterOff    = 80 // int32: 1 while a writer holds the lock (padded to 8)
	hdrLockWaitersOff   = 88 // int32: writers currently queued
	hdrLockTokenOff     = 96 // uint32: monotonic write-generation counter (LockToken)

	hdrDirtyOff     = 104 // uint32: 0 = clean shutdown, 1 = dirty (crash indicator)
	hdrHashAlgOff   = 108 // uint32: hash algorithm for hashed-index buckets (interning always uses HashXXHash3)
	hdrLoggingOff   = 112 // uint32: 1 while journal logging is active

	// Size-class freelist heads (spec §4.1 "size classes"). One slot per
	// class: word cell, record headers of arity 1..4, small-string bucket.
	hdrSizeClassBase = 128 // numSizeClasses * uint64
	numSizeClasses   = 6

	// HeaderSize must be >= readerSlotTableOff + maxReaderSlots*readerSlotSize,
	// word aligned, and leave room before the index table begins.
	HeaderSize = 432
)

// ---- Reader lock-token slot table (spec §4.4: "Tokens are bounded-range
// integers (not pointers) so that a dead holder can be detected and
// reclaimed") ----
//
// start_read (AcquireRead) claims one slot and hands back its index as
// the caller's ReadToken; end_read (ReleaseRead) clears it. Each slot
// records the claiming process's pid instead of leaving the slot a bare
// boolean, so a maintenance pass can tell a stale slot (pid no longer
// running) from one that is genuinely still held.
const (
	readerSlotTableOff = hdrSizeClassBase + numSizeClasses*8 // 176
	maxReaderSlots     = 64
	readerSlotSize     = 4 // uint32 pid, 0 = free
)

// sizeClassBytes gives the allocation size each size class slot serves.
// Class 0 is a bare encoded-word cell (used by spill objects that are
// exactly one word, e.g. a boxed int). Classes 1..4 are record headers
// of arity 1..4 (recordHeaderSize + arity*wordSize). Class 5 is a small
// string spill bucket of 64 bytes, the same size as class 4;
// classIndexForSize returns the first matching class, so every 64-byte
// request uses class 4's freelist and class 5's list stays empty.
var sizeClassBytes = [numSizeClasses]int{
	8,
	recordHeaderSize + 1*wordSize,
	recordHeaderSize + 2*wordSize,
	recordHeaderSize + 3*wordSize,
	recordHeaderSize + 4*wordSize,
	64,
}

// ---- Named-index table (spec §3 "Named-index table") ----

const (
	indexTableOff     = HeaderSize // fixed: table sits right after the header
	maxIndexes        = 32
	indexEntrySize    = 64
	maxIndexColumns   = 4

	ieInUseOff     = 0  // uint32
	ieKindOff      = 4  // uint32: 1=ordered, 2=hashed
	ieNumColsOff   = 8  // uint32
	ieColsOff      = 12 // [4]uint32, 16 bytes -> 12..28
	ieTemplateOff  = 32 // uint64: offset of stored template record, 0 if none
	ieTemplateLen  = 40 // uint32: arity of the template
	ieBodyOff      = 48 // uint64: offset of the index body structure
)

// ---- Pooled-string hash (interning table, spec §3/§4.2) ----

const (
	internTableOff = indexTableOff + maxIndexes*indexEntrySize

	// hash table body shared shape, used by both the intern table and
	// the hashed-index bodies (hashindex.go): a small fixed header
	// followed by a segment-allocated bucket array that is reallocated
	// (doubled) when the load factor crosses 0.7, mirroring the
	// teacher's compaction-style "scan, rebuild bigger, swap" approach
	// in repair.go, just applied to a bucket array instead of a file.
	hashHdrCountOff = 0  // uint64
	hashHdrCapOff   = 8  // uint64 (number of buckets, power of two)
	hashHdrDataOff  = 16 // uint64 (offset of bucket array)
	hashHdrSize     = 24

	hashBucketSize   = 24 // key uint64 | value uint64 | state uint32 (+4 pad)
	hbKeyOff         = 0
	hbValueOff       = 8
	hbStateOff       = 16

	hbEmpty     = 0
	hbOccupied  = 1
	hbTombstone = 2
)

// ---- Ordered index body (ttree.go) ----

const (
	ordHdrCountOff = 0  // uint64
	ordHdrCapOff   = 8  // uint64
	ordHdrDataOff  = 16 // uint64, offset of Entry array
	ordHdrSize     = 24

	ordEntrySize  = 16 // word uint64 | record offset uint64
	oeWordOff     = 0
	oeRecordOff   = 8
)

// ---- Hashed-index value chain ----
//
// A hashed-index bucket holds exactly one key/value pair (hashindex.go),
// but an indexed column is rarely unique, so the bucket's value is the
// head of a singly linked chain of nodes, each holding one matching
// record's offset — the same shape as the parent-chain nodes below,
// just keyed by index membership instead of back-reference ownership.
const (
	ixEntryNodeSize = 16

	ixenRecordOff = 0 // uint64: matching record's offset
	ixenNextOff   = 8 // uint64: next node in this key's chain
)

// ---- Record header (spec §3 "Record") ----

const (
	recordHeaderSize = 32

	rhArityOff      = 0  // uint32
	rhFlagsOff      = 4  // uint32, bit0 = JSON document root
	rhParentHeadOff = 8  // uint64
	rhPrevOff       = 16 // uint64, record list
	rhNextOff       = 24 // uint64, record list

	flagJSONRoot = uint32(1)
)

// parent-chain node (spec §3 "back-reference chain")
const (
	parentNodeSize = 24

	pnOwnerOff = 0  // uint64: record holding the referencing field
	pnFieldOff = 8  // uint32: field index within the owner
	pnNextOff  = 16 // uint64: next node in this record's parent chain
)

// ---- Tagged word (spec §4.2) ----

const (
	tagNull     = 0 // only meaningful when the whole word is zero
	tagInt      = 1 // inline small int, sign-extended from bits [63:3]
	tagRecord   = 2 // bits [63:3] << 3 = record offset
	tagChar     = 3 // bits [10:3] = byte value
	tagStrShort = 4 // byte0 high bits = length (0..7), bytes 1..7 = content
	tagSpill    = 5 // bits [63:3] << 3 = offset of a typed spill header
	// tags 6, 7 are reserved/unused by any successful encode.
)

// illegalWord is the distinguished sentinel: all-ones, never produced by
// a successful encode, compares unequal to every valid word (spec §4.2).
const illegalWord = Word(^uint64(0))

// ---- Spill object header (spec §3 "Typed spill objects") ----
//
// Every spill object begins with a one-byte Kind tag so a bare offset
// can be typed without consulting the referencing word. Interned kinds
// (Str, Uri) carry a refcount at a fixed offset; other kinds do not
// (single owner, freed directly when the field is cleared/overwritten).

const (
	spillKindOff = 0 // byte
	// 7 bytes of padding for word alignment of the payload that follows.
	spillPayloadOff = wordSize

	// refcount used only by interned kinds (Str, Uri); lives at the
	// same fixed offset so release() can treat them uniformly.
	spillRefcountOff = spillPayloadOff // uint32, overlaps payload start for interned kinds only
)

// Per-kind payload layouts, all starting at spillPayloadOff.
const (
	// Double: refcount(4,unused)+pad(4) ++ float64 value(8)
	spDoubleValueOff = spillPayloadOff + 8
	spDoubleSize     = spDoubleValueOff + 8

	// FixedPoint: scaled integer at a fixed decimal scale (fixedPointScale).
	spFixedValueOff = spillPayloadOff + 8
	spFixedSize     = spFixedValueOff + 8

	// boxed Int (overflow of the inline 61-bit range).
	spIntValueOff = spillPayloadOff + 8
	spIntSize     = spIntValueOff + 8

	// Date: signed day count from dateEpoch.
	spDateValueOff = spillPayloadOff + 8
	spDateSize     = spDateValueOff + 8

	// Time: fractional seconds since midnight, fixed-point millisecond grid.
	spTimeValueOff = spillPayloadOff + 8
	spTimeSize     = spTimeValueOff + 8

	// Var: wildcard marker carrying a small column index.
	spVarIndexOff = spillPayloadOff + 8
	spVarSize     = spVarIndexOff + 8

	// AnonConst: an opaque small integer identifying the constant.
	spAnonValueOff = spillPayloadOff + 8
	spAnonSize     = spAnonValueOff + 8

	// Str (interned): refcount(4) + langLen(4) + length(4) + pad(4) + bytes.
	spStrRefcountOff = spillPayloadOff        // uint32
	spStrLangLenOff  = spillPayloadOff + 4    // uint32: language tag length (0 if none)
	spStrLenOff      = spillPayloadOff + 8    // uint32: data length
	spStrPad         = spillPayloadOff + 12   // uint32 padding
	spStrDataOff     = spillPayloadOff + 16   // bytes: lang bytes then data bytes

	// Uri (interned prefix + local part): refcount(4)+prefixLen(4)+localLen(4)+pad(4)+bytes.
	spUriRefcountOff  = spillPayloadOff
	spUriPrefixLenOff = spillPayloadOff + 4
	spUriLocalLenOff  = spillPayloadOff + 8
	spUriPad          = spillPayloadOff + 12
	spUriDataOff      = spillPayloadOff + 16

	// XmlLiteral: xsdTypeLen(4)+valueLen(4)+bytes (xsdType then value).
	spXmlXsdLenOff = spillPayloadOff
	spXmlValLenOff = spillPayloadOff + 4
	spXmlDataOff   = spillPayloadOff + 8

	// Blob: blobType(4)+length(4)+bytes.
	spBlobTypeOff = spillPayloadOff
	spBlobLenOff  = spillPayloadOff + 4
	spBlobDataOff = spillPayloadOff + 8
)

// fixedPointScale is the documented decimal scale factor for FixedPoint
// values: a FixedPoint value v represents v / fixedPointScale.
const fixedPointScale = 1_000_000

// dateEpoch is the documented epoch for Date: 0 represents 1970-01-01.
const dateEpochYear, dateEpochMonth, dateEpochDay = 1970, 1, 1

// timeGridMillis: Time stores milliseconds since midnight (fixed grid).
const timeGridMillis = 1
