// Segment header encode/validate and the dirty-flag crash indicator.
//
// Grounded on the teacher's header.go: a fixed-size header read and
// patched at known byte offsets (there, a padded JSON line with `dirty`
// toggled by writing a single byte at offset 13; here, a binary struct
// toggled by writing a uint32 at hdrDirtyOff). Same idea — one flag,
// one fixed offset, no parse required to check or flip it.
package wgdb

import "encoding/binary"

var headerMagic = [4]byte{'W', 'G', 'D', 'B'}

const headerVersion uint32 = 1

// initHeader writes a fresh header into a newly created segment of the
// given total size and establishes the fixed regions (index table,
// intern table) that always exist, even when empty.
func (s *Segment) initHeader(totalSize int64) error {
	copy(s.data[hdrMagicOff:hdrMagicOff+4], headerMagic[:])
	s.setU32(hdrVersionOff, headerVersion)
	s.setU64(hdrTotalSizeOff, uint64(totalSize))

	bump := int64(internTableOff + hashHdrSize)
	s.setU64(hdrBumpOff, uint64(bump))
	s.setU64(hdrGenFreeOff, 0)
	s.setU64(hdrRecListHeadOff, 0)
	s.setU64(hdrRecListTailOff, 0)
	s.setU64(hdrIndexTableOff, uint64(indexTableOff))
	s.setU64(hdrInternTableOff, uint64(internTableOff))
	s.setU64(hdrRecordCountOff, 0)

	s.setU32(hdrLockReadersOff, 0)
	s.setU32(hdrLockWriterOff, 0)
	s.setU32(hdrLockWaitersOff, 0)
	s.setU32(hdrLockTokenOff, 0)

	s.setU32(hdrDirtyOff, 0)
	s.setU32(hdrHashAlgOff, uint32(HashXXHash3))
	s.setU32(hdrLoggingOff, 0)

	// Zero the index table and the intern table's bucket-array pointer;
	// the intern table itself grows its bucket array lazily on first
	// insert via growHashBody.
	for i := 0; i < maxIndexes; i++ {
		s.setU32(indexTableOff+int64(i*indexEntrySize)+ieInUseOff, 0)
	}
	s.setU64(internTableOff+hashHdrCountOff, 0)
	s.setU64(internTableOff+hashHdrCapOff, 0)
	s.setU64(internTableOff+hashHdrDataOff, 0)

	return nil
}

// validateHeader checks the magic and version of an existing segment.
func (s *Segment) validateHeader() error {
	if len(s.data) < HeaderSize {
		return ErrCorruptSegment
	}
	if string(s.data[hdrMagicOff:hdrMagicOff+4]) != string(headerMagic[:]) {
		return ErrCorruptSegment
	}
	if s.u32(hdrVersionOff) != headerVersion {
		return ErrCorruptSegment
	}
	return nil
}

func (s *Segment) dirty() bool { return s.u32(hdrDirtyOff) != 0 }

func (s *Segment) setDirty(v bool) {
	if v {
		s.setU32(hdrDirtyOff, 1)
	} else {
		s.setU32(hdrDirtyOff, 0)
	}
}

// markDirtyOnFirstWrite mirrors the teacher's write.go raw(): the dirty
// flag is set on the first mutation in a session and cleared only by a
// clean Detach, so a crash mid-session is detectable on the next Attach.
func (s *Segment) markDirtyOnFirstWrite() {
	if !s.dirty() {
		s.setDirty(true)
	}
}

// headerSnapshot is used by Dump to serialise header fields into the
// dump file's own 64-byte header (spec §6 "Dump file layout").
type headerSnapshot struct {
	Magic       [4]byte
	Version     uint32
	SegmentSize uint64
	Alignment   uint32
	Flags       uint32
}

func (s *Segment) snapshot() headerSnapshot {
	return headerSnapshot{
		Magic:       headerMagic,
		Version:     headerVersion,
		SegmentSize: uint64(len(s.data)),
		Alignment:   alignment,
		Flags:       0,
	}
}

func encodeDumpHeader(h headerSnapshot) []byte {
	buf := make([]byte, 64)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint64(buf[8:16], h.SegmentSize)
	binary.LittleEndian.PutUint32(buf[16:20], h.Alignment)
	binary.LittleEndian.PutUint32(buf[20:24], h.Flags)
	return buf
}

func decodeDumpHeader(buf []byte) (headerSnapshot, error) {
	var h headerSnapshot
	if len(buf) < 64 {
		return h, ErrCorruptSegment
	}
	copy(h.Magic[:], buf[0:4])
	if h.Magic != headerMagic {
		return h, ErrCorruptSegment
	}
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	if h.Version != headerVersion {
		return h, ErrCorruptSegment
	}
	h.SegmentSize = binary.LittleEndian.Uint64(buf[8:16])
	h.Alignment = binary.LittleEndian.Uint32(buf[16:20])
	h.Flags = binary.LittleEndian.Uint32(buf[20:24])
	return h, nil
}
