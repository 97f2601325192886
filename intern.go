// Pooled-string interning table (spec §3/§4.2): a segment-resident open
// hash table mapping string (and URI prefix+local) content to a single
// shared spill object, so equal values encode to equal words and are
// stored once.
//
// The bucket array shape (count/cap/data header, key|value|state
// buckets) is shared with hashed-index bodies in hashindex.go. Growth
// doubles the bucket array and rehashes every live entry into it —
// the same "scan everything, rebuild bigger, swap the pointer" shape
// as the teacher's repair.go, just against a segment-resident array
// instead of the backing file.
package wgdb

const internLoadFactorNum, internLoadFactorDen = 7, 10 // grow past 0.7

// internStr finds or creates the Str spill object for the given content
// and language tag, returning its offset with refcount already
// incremented (or initialised to 1 for a fresh entry).
func internStr(s *Segment, content, lang []byte) (int64, error) {
	key := internKey(content, lang)
	return internFindOrInsert(s, internTableOff, key, func() (int64, error) {
		return newStrSpill(s, content, lang)
	}, func(off int64) bool {
		return Kind(s.byteAt(off)) == KindStr && strSpillEquals(s, off, content, lang)
	}, func(off int64) { s.setU32(off+spStrRefcountOff, s.u32(off+spStrRefcountOff)+1) })
}

// internUri finds or creates the Uri spill object for a prefix+local pair.
func internUri(s *Segment, prefix, local []byte) (int64, error) {
	key := internKey(prefix, local)
	return internFindOrInsert(s, internTableOff, key, func() (int64, error) {
		return newUriSpill(s, prefix, local)
	}, func(off int64) bool {
		return Kind(s.byteAt(off)) == KindUri && uriSpillEquals(s, off, prefix, local)
	}, func(off int64) { s.setU32(off+spUriRefcountOff, s.u32(off+spUriRefcountOff)+1) })
}

// internRemove deletes the table entry pointing at the spill object at
// off, called just before the object itself is freed (refcount reached
// zero in Release).
func internRemove(s *Segment, off int64) {
	hashTableRemoveByValue(s, internTableOff, uint64(off))
}

// internKey mixes two byte strings into one bucket key. The intern
// table always uses the default algorithm regardless of the segment's
// configured hdrHashAlgOff — interning is an internal implementation
// detail, not a queryable hashed index, so it never needs to agree
// with a caller-chosen algorithm.
func internKey(a, b []byte) uint64 {
	combined := make([]byte, 0, len(a)+len(b)+1)
	combined = append(combined, a...)
	combined = append(combined, 0)
	combined = append(combined, b...)
	return hashBytes(combined, HashXXHash3)
}

func strSpillEquals(s *Segment, off int64, content, lang []byte) bool {
	langLen := int(s.u32(off + spStrLangLenOff))
	strLen := int(s.u32(off + spStrLenOff))
	if langLen != len(lang) || strLen != len(content) {
		return false
	}
	data := s.bytesAt(off+spStrDataOff, langLen+strLen)
	return bytesEqual(data[:langLen], lang) && bytesEqual(data[langLen:], content)
}

func uriSpillEquals(s *Segment, off int64, prefix, local []byte) bool {
	prefixLen := int(s.u32(off + spUriPrefixLenOff))
	localLen := int(s.u32(off + spUriLocalLenOff))
	if prefixLen != len(prefix) || localLen != len(local) {
		return false
	}
	data := s.bytesAt(off+spUriDataOff, prefixLen+localLen)
	return bytesEqual(data[:prefixLen], prefix) && bytesEqual(data[prefixLen:], local)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newStrSpill(s *Segment, content, lang []byte) (int64, error) {
	n := spStrDataOff + int64(len(lang)) + int64(len(content))
	off, err := s.Alloc(n)
	if err != nil {
		return 0, err
	}
	s.setByteAt(off+spillKindOff, byte(KindStr))
	s.setU32(off+spStrRefcountOff, 1)
	s.setU32(off+spStrLangLenOff, uint32(len(lang)))
	s.setU32(off+spStrLenOff, uint32(len(content)))
	s.putBytes(off+spStrDataOff, lang)
	s.putBytes(off+spStrDataOff+int64(len(lang)), content)
	return off, nil
}

func newUriSpill(s *Segment, prefix, local []byte) (int64, error) {
	n := spUriDataOff + int64(len(prefix)) + int64(len(local))
	off, err := s.Alloc(n)
	if err != nil {
		return 0, err
	}
	s.setByteAt(off+spillKindOff, byte(KindUri))
	s.setU32(off+spUriRefcountOff, 1)
	s.setU32(off+spUriPrefixLenOff, uint32(len(prefix)))
	s.setU32(off+spUriLocalLenOff, uint32(len(local)))
	s.putBytes(off+spUriDataOff, prefix)
	s.putBytes(off+spUriDataOff+int64(len(prefix)), local)
	return off, nil
}

// ---- shared hash-table body (used by intern.go and hashindex.go) ----

// internFindOrInsert walks the bucket chain for key starting at its
// home slot (linear probing), calling match on every occupied bucket
// whose key hashes equal to disambiguate real collisions, and onHit on
// the first match. On a miss it creates a fresh value via create,
// inserts it, and returns its offset.
func internFindOrInsert(s *Segment, tableOff int64, key uint64, create func() (int64, error), match func(off int64) bool, onHit func(off int64)) (int64, error) {
	if err := ensureHashCapacity(s, tableOff); err != nil {
		return 0, err
	}
	capacity := int64(s.u64(tableOff + hashHdrCapOff))
	data := int64(s.u64(tableOff + hashHdrDataOff))
	start := int64(key % uint64(capacity))
	firstTombstone := int64(-1)

	for i := int64(0); i < capacity; i++ {
		idx := (start + i) % capacity
		bucketOff := data + idx*hashBucketSize
		state := s.u32(bucketOff + hbStateOff)
		if state == hbEmpty {
			insertAt := bucketOff
			if firstTombstone >= 0 {
				insertAt = firstTombstone
			}
			valOff, err := create()
			if err != nil {
				return 0, err
			}
			s.setU64(insertAt+hbKeyOff, key)
			s.setU64(insertAt+hbValueOff, uint64(valOff))
			s.setU32(insertAt+hbStateOff, hbOccupied)
			s.setU64(tableOff+hashHdrCountOff, s.u64(tableOff+hashHdrCountOff)+1)
			return valOff, nil
		}
		if state == hbTombstone {
			if firstTombstone < 0 {
				firstTombstone = bucketOff
			}
			continue
		}
		if s.u64(bucketOff+hbKeyOff) == key {
			valOff := int64(s.u64(bucketOff + hbValueOff))
			if match(valOff) {
				onHit(valOff)
				return valOff, nil
			}
		}
	}
	return 0, ErrOutOfSpace
}

// hashTableRemoveByValue scans for a bucket pointing at value and
// tombstones it. Interning tables are small relative to index bodies
// and removal is rare (only on refcount-to-zero), so a linear scan
// over the bucket array is acceptable.
func hashTableRemoveByValue(s *Segment, tableOff int64, value uint64) {
	capacity := int64(s.u64(tableOff + hashHdrCapOff))
	data := int64(s.u64(tableOff + hashHdrDataOff))
	for idx := int64(0); idx < capacity; idx++ {
		bucketOff := data + idx*hashBucketSize
		if s.u32(bucketOff+hbStateOff) == hbOccupied && s.u64(bucketOff+hbValueOff) == value {
			s.setU32(bucketOff+hbStateOff, hbTombstone)
			s.setU64(tableOff+hashHdrCountOff, s.u64(tableOff+hashHdrCountOff)-1)
			return
		}
	}
}

const initialHashCap = 16

// ensureHashCapacity lazily allocates the bucket array on first use and
// doubles it whenever the load factor would cross 0.7, rehashing every
// live entry into the new array (teacher's repair.go "rebuild bigger,
// swap" shape, spec §3 applied to a bucket array instead of a file).
//
// A failed first allocation (capacity still 0) is returned to the
// caller: the table has no bucket array to index into, so proceeding
// would divide by a zero capacity. A failed re-grow of an already
// non-empty table is tolerated silently — the existing array is kept
// in place and inserts keep succeeding until it is genuinely full, at
// which point the probe loop itself returns ErrOutOfSpace.
func ensureHashCapacity(s *Segment, tableOff int64) error {
	capacity := int64(s.u64(tableOff + hashHdrCapOff))
	count := int64(s.u64(tableOff + hashHdrCountOff))
	if capacity == 0 {
		return growHashBody(s, tableOff, initialHashCap)
	}
	if (count+1)*internLoadFactorDen >= capacity*internLoadFactorNum {
		_ = growHashBody(s, tableOff, capacity*2)
	}
	return nil
}

func growHashBody(s *Segment, tableOff int64, newCap int64) error {
	newData, err := s.Alloc(newCap * hashBucketSize)
	if err != nil {
		return err
	}
	for i := int64(0); i < newCap; i++ {
		s.setU32(newData+i*hashBucketSize+hbStateOff, hbEmpty)
	}

	oldCap := int64(s.u64(tableOff + hashHdrCapOff))
	oldData := int64(s.u64(tableOff + hashHdrDataOff))
	for i := int64(0); i < oldCap; i++ {
		bucketOff := oldData + i*hashBucketSize
		if s.u32(bucketOff+hbStateOff) != hbOccupied {
			continue
		}
		key := s.u64(bucketOff + hbKeyOff)
		val := s.u64(bucketOff + hbValueOff)
		rehashInsert(s, newData, newCap, key, val)
	}
	if oldCap > 0 {
		s.Free(oldData, oldCap*hashBucketSize)
	}
	s.setU64(tableOff+hashHdrCapOff, uint64(newCap))
	s.setU64(tableOff+hashHdrDataOff, uint64(newData))
	return nil
}

func rehashInsert(s *Segment, data, capacity int64, key, val uint64) {
	start := int64(key % uint64(capacity))
	for i := int64(0); i < capacity; i++ {
		idx := (start + i) % capacity
		bucketOff := data + idx*hashBucketSize
		if s.u32(bucketOff+hbStateOff) == hbEmpty {
			s.setU64(bucketOff+hbKeyOff, key)
			s.setU64(bucketOff+hbValueOff, val)
			s.setU32(bucketOff+hbStateOff, hbOccupied)
			return
		}
	}
}
