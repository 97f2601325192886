// Fixed-arity record layer (spec §3/§4.3 C3): records are fixed-size
// slots of encoded words threaded into one global doubly linked list,
// with a back-reference ("parent") chain per record so a record
// holding incoming Record-typed fields can be found without a scan,
// and so delete can refuse to orphan a still-referenced record.
//
// Grounded on the teacher's record.go Record/Index/Result/Entry shapes
// in spirit — fixed-offset fields read without a general parse — but
// the layout itself (arity, flags, parent head, list links) is new:
// the teacher's records are JSON lines, these are fixed binary slots.
package wgdb

import "sync/atomic"

// Record is a handle to a fixed-arity record living in a segment.
type Record struct {
	Seg *Segment
	Off int64
}

func fieldOff(recOff int64, idx int) int64 {
	return recOff + recordHeaderSize + int64(idx)*wordSize
}

// CreateRecord allocates a record of the given arity with every field
// initialised to Null, links it into the segment's global record list,
// adds it to every registered index it falls within scope of, and
// returns a handle to it (spec §2 write control-flow: C3 -> C1 -> C5
// index maintenance).
func (s *Segment) CreateRecord(arity int) (Record, error) {
	off, err := s.createRecordSlot(arity)
	if err != nil {
		return Record{}, err
	}
	for i := 0; i < arity; i++ {
		s.setU64(fieldOff(off, i), 0)
	}
	s.logCreate(off, arity)
	for _, ix := range AllIndexes(s) {
		if err := ix.Insert(off); err != nil {
			return Record{}, err
		}
	}
	return Record{Seg: s, Off: off}, nil
}

// CreateRawRecord allocates a record of the given arity without
// initialising its fields (spec "create_raw_record leaves fields
// uninitialised"). The caller must populate every field with
// SetNewField before any other goroutine can observe the record,
// typically while still holding the writer lock.
func (s *Segment) CreateRawRecord(arity int) (Record, error) {
	off, err := s.createRecordSlot(arity)
	if err != nil {
		return Record{}, err
	}
	s.logCreate(off, arity)
	return Record{Seg: s, Off: off}, nil
}

func (s *Segment) createRecordSlot(arity int) (int64, error) {
	off, err := s.AllocRecordSlot(arity)
	if err != nil {
		return 0, err
	}
	s.setU32(off+rhArityOff, uint32(arity))
	s.setU32(off+rhFlagsOff, 0)
	s.setU64(off+rhParentHeadOff, 0)
	s.linkRecord(off)
	s.setU64(hdrRecordCountOff, s.u64(hdrRecordCountOff)+1)
	s.markDirtyOnFirstWrite()
	return off, nil
}

// DeleteRecord removes a record, releasing every field's reference and
// freeing its storage. It refuses to delete a record that other
// records still point to via a Record-typed field (spec "a record with
// live incoming references cannot be deleted"). Before the record's
// fields are released, it is dropped from every registered index it
// participates in (spec §2 write control-flow's C5 index-maintenance
// step) since a hashed index body recomputes its bucket key from the
// record's current field values.
func (s *Segment) DeleteRecord(off int64) error {
	if s.hasParents(off) {
		return ErrHasReferences
	}
	for _, ix := range AllIndexes(s) {
		if err := ix.Remove(off); err != nil {
			return err
		}
	}
	arity := int(s.u32(off + rhArityOff))
	s.logDelete(off, arity)
	for i := 0; i < arity; i++ {
		fo := fieldOff(off, i)
		w := Word(s.u64(fo))
		if kindOf(s, w) == KindRecord {
			target, err := decodeRecordOffset(w)
			if err == nil {
				s.removeParentRef(target, off, i)
			}
		}
		Release(s, w)
	}
	s.unlinkRecord(off)
	s.freeParentChain(off)
	s.FreeRecordSlot(off, arity)
	s.setU64(hdrRecordCountOff, s.u64(hdrRecordCountOff)-1)
	s.markDirtyOnFirstWrite()
	return nil
}

// IsJSONRoot reports whether a record was created as the root of a
// parsed JSON document (spec "parse_json_document marks its top-level
// record").
func (s *Segment) IsJSONRoot(off int64) bool {
	return s.u32(off+rhFlagsOff)&flagJSONRoot != 0
}

// SetJSONRoot marks or unmarks a record as a JSON document root.
func (s *Segment) SetJSONRoot(off int64, root bool) {
	flags := s.u32(off + rhFlagsOff)
	if root {
		flags |= flagJSONRoot
	} else {
		flags &^= flagJSONRoot
	}
	s.setU32(off+rhFlagsOff, flags)
}

// RecordLen returns a record's arity.
func (s *Segment) RecordLen(off int64) int { return int(s.u32(off + rhArityOff)) }

// GetField reads one field of a record.
func (s *Segment) GetField(off int64, idx int) (Word, error) {
	if idx < 0 || idx >= s.RecordLen(off) {
		return 0, ErrOutOfRange
	}
	return Word(s.u64(fieldOff(off, idx))), nil
}

// SetField overwrites a field, releasing whatever the field previously
// held and updating the parent chains of both the old and new
// referenced records (spec "setting a field updates back-references").
// Any index covering this column is removed before the word is written
// (a hashed index's remove recomputes its bucket key from the record's
// still-current field value) and reinserted after, matching spec §4.3's
// write control-flow: release the previous word (C2), maintain indexes
// covering the column (C5), then write the new word.
func (s *Segment) SetField(off int64, idx int, w Word) error {
	if idx < 0 || idx >= s.RecordLen(off) {
		return ErrOutOfRange
	}
	covering := indexesCoveringColumn(s, idx)
	for _, ix := range covering {
		if err := ix.Remove(off); err != nil {
			return err
		}
	}
	fo := fieldOff(off, idx)
	old := Word(s.u64(fo))
	if kindOf(s, old) == KindRecord {
		if target, err := decodeRecordOffset(old); err == nil {
			s.removeParentRef(target, off, idx)
		}
	}
	if kindOf(s, w) == KindRecord {
		target, err := decodeRecordOffset(w)
		if err == nil {
			if err := s.addParentRef(target, off, idx); err != nil {
				return err
			}
		}
	}
	s.logSetField(off, idx, old, w)
	Release(s, old)
	s.setU64(fo, uint64(w))
	s.markDirtyOnFirstWrite()
	for _, ix := range covering {
		if err := ix.Insert(off); err != nil {
			return err
		}
	}
	return nil
}

// SetNewField populates a field of a raw record created by
// CreateRawRecord. The field is assumed to currently hold Null, so no
// release of a prior value is attempted. Any index covering this
// column is maintained once the new value is in place (spec §2 write
// control-flow's C5 step).
func (s *Segment) SetNewField(off int64, idx int, w Word) error {
	if idx < 0 || idx >= s.RecordLen(off) {
		return ErrOutOfRange
	}
	if kindOf(s, w) == KindRecord {
		target, err := decodeRecordOffset(w)
		if err == nil {
			if err := s.addParentRef(target, off, idx); err != nil {
				return err
			}
		}
	}
	s.logSetField(off, idx, 0, w)
	s.setU64(fieldOff(off, idx), uint64(w))
	for _, ix := range indexesCoveringColumn(s, idx) {
		if err := ix.Insert(off); err != nil {
			return err
		}
	}
	return nil
}

// EncodeRecord wraps a record's own offset as a Record-kind word, for
// storing a reference to it in another record's field.
func EncodeRecord(rec Record) Word { return encodeRecordOffset(rec.Off) }

// DecodeRecord resolves a Record-kind word back to a record handle.
func DecodeRecord(s *Segment, w Word) (Record, error) {
	off, err := decodeRecordOffset(w)
	if err != nil {
		return Record{}, err
	}
	return Record{Seg: s, Off: off}, nil
}

// ---- global record list ----

// FirstRecord returns the offset of the first live record, or 0 if the
// segment holds none.
func (s *Segment) FirstRecord() int64 { return int64(s.u64(hdrRecListHeadOff)) }

// NextRecord returns the offset of the record following off in
// creation order, or 0 at the end of the list.
func (s *Segment) NextRecord(off int64) int64 { return int64(s.u64(off + rhNextOff)) }

func (s *Segment) linkRecord(off int64) {
	tail := int64(s.u64(hdrRecListTailOff))
	s.setU64(off+rhPrevOff, uint64(tail))
	s.setU64(off+rhNextOff, 0)
	if tail == 0 {
		s.setU64(hdrRecListHeadOff, uint64(off))
	} else {
		s.setU64(tail+rhNextOff, uint64(off))
	}
	s.setU64(hdrRecListTailOff, uint64(off))
}

func (s *Segment) unlinkRecord(off int64) {
	prev := int64(s.u64(off + rhPrevOff))
	next := int64(s.u64(off + rhNextOff))
	if prev == 0 {
		s.setU64(hdrRecListHeadOff, uint64(next))
	} else {
		s.setU64(prev+rhNextOff, uint64(next))
	}
	if next == 0 {
		s.setU64(hdrRecListTailOff, uint64(prev))
	} else {
		s.setU64(next+rhPrevOff, uint64(prev))
	}
}

// ---- parent (back-reference) chain ----

// FirstParent returns the offset of the first parent-chain node for a
// record, or 0 if nothing references it.
func (s *Segment) FirstParent(off int64) int64 { return int64(s.u64(off + rhParentHeadOff)) }

// NextParent returns the next node in a parent chain after node.
func (s *Segment) NextParent(node int64) int64 { return int64(s.u64(node + pnNextOff)) }

// ParentOwner reads the referencing record's offset and field index
// out of a parent-chain node.
func (s *Segment) ParentOwner(node int64) (ownerOff int64, fieldIdx int) {
	return int64(s.u64(node + pnOwnerOff)), int(s.u32(node + pnFieldOff))
}

func (s *Segment) hasParents(off int64) bool { return s.u64(off+rhParentHeadOff) != 0 }

func (s *Segment) addParentRef(targetOff, ownerOff int64, fieldIdx int) error {
	node, err := s.Alloc(parentNodeSize)
	if err != nil {
		return err
	}
	s.setU64(node+pnOwnerOff, uint64(ownerOff))
	s.setU32(node+pnFieldOff, uint32(fieldIdx))
	head := s.u64(targetOff + rhParentHeadOff)
	s.setU64(node+pnNextOff, head)
	s.setU64(targetOff+rhParentHeadOff, uint64(node))
	return nil
}

func (s *Segment) removeParentRef(targetOff, ownerOff int64, fieldIdx int) {
	var prev int64
	cur := int64(s.u64(targetOff + rhParentHeadOff))
	for cur != 0 {
		next := int64(s.u64(cur + pnNextOff))
		owner, idx := s.ParentOwner(cur)
		if owner == ownerOff && idx == fieldIdx {
			if prev == 0 {
				s.setU64(targetOff+rhParentHeadOff, uint64(next))
			} else {
				s.setU64(prev+pnNextOff, uint64(next))
			}
			s.Free(cur, parentNodeSize)
			return
		}
		prev = cur
		cur = next
	}
}

func (s *Segment) freeParentChain(off int64) {
	cur := int64(s.u64(off + rhParentHeadOff))
	for cur != 0 {
		next := int64(s.u64(cur + pnNextOff))
		s.Free(cur, parentNodeSize)
		cur = next
	}
	s.setU64(off+rhParentHeadOff, 0)
}

// ---- lock-free atomic field operations (spec §4.3) ----

// SetAtomicField stores w into a field using an atomic swap, returning
// the previous value. It does not maintain the parent chain and must
// only be used on fields that never hold a Record-kind word.
func (s *Segment) SetAtomicField(off int64, idx int, w Word) Word {
	ptr := s.uint64At(fieldOff(off, idx))
	return Word(atomic.SwapUint64(ptr, uint64(w)))
}

// UpdateAtomicField applies fn to a field's current value in a
// compare-and-swap loop, returning the value that was installed.
func (s *Segment) UpdateAtomicField(off int64, idx int, fn func(old Word) Word) Word {
	ptr := s.uint64At(fieldOff(off, idx))
	for {
		old := atomic.LoadUint64(ptr)
		next := fn(Word(old))
		if atomic.CompareAndSwapUint64(ptr, old, uint64(next)) {
			return next
		}
	}
}

// AddIntAtomicField atomically adds delta to an inline Int field,
// returning the new value. It fails with ErrTypeMismatch if the field
// does not hold an inline Int, and with ErrOutOfSpace if the result
// would overflow the inline range — a boxed int cannot be updated
// atomically since that would require replacing the spill object,
// which needs the writer lock (use SetField instead).
func (s *Segment) AddIntAtomicField(off int64, idx int, delta int64) (int64, error) {
	ptr := s.uint64At(fieldOff(off, idx))
	for {
		old := atomic.LoadUint64(ptr)
		if tagOf(Word(old)) != tagInt {
			return 0, ErrTypeMismatch
		}
		v, err := decodeIntRaw(s, Word(old))
		if err != nil {
			return 0, err
		}
		next := v + delta
		if next < intInlineMin || next > intInlineMax {
			return 0, ErrOutOfSpace
		}
		raw := uint64(next) & ((uint64(1) << 61) - 1)
		neuWord := raw<<3 | tagInt
		if atomic.CompareAndSwapUint64(ptr, old, neuWord) {
			return next, nil
		}
	}
}
