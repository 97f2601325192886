// Ordered index body (spec §4.5): a segment-resident array of
// (key word, record offset) entries kept sorted by key, searched with
// binary search and grown by doubling — the shape of a T-tree's single
// dense leaf without the tree-of-leaves structure above it, which this
// engine's record counts don't need.
//
// Entries are sorted by the first indexed column only; an equality
// lookup filters the entries tied on it by re-reading the remaining
// indexed columns directly off the record, the same
// "re-derive from the source of truth instead of caching it" move the
// teacher's scan.go makes when sparse() falls back to a linear pass
// over records scan() can't binary-search.
package wgdb

type orderedIndexBody struct{}

func (orderedIndexBody) insert(s *Segment, bodyOff int64, cols []int, recOff int64) error {
	key, err := s.GetField(recOff, cols[0])
	if err != nil {
		return err
	}
	if err := ensureOrderedCapacity(s, bodyOff); err != nil {
		return err
	}
	data := int64(s.u64(bodyOff + ordHdrDataOff))
	count := int64(s.u64(bodyOff + ordHdrCountOff))

	pos := orderedLowerBound(s, data, count, key)
	for i := count; i > pos; i-- {
		copyOrderedEntry(s, data, i, i-1)
	}
	s.setU64(data+pos*ordEntrySize+oeWordOff, uint64(key))
	s.setU64(data+pos*ordEntrySize+oeRecordOff, uint64(recOff))
	s.setU64(bodyOff+ordHdrCountOff, uint64(count+1))
	return nil
}

func (orderedIndexBody) remove(s *Segment, bodyOff int64, cols []int, recOff int64) error {
	data := int64(s.u64(bodyOff + ordHdrDataOff))
	count := int64(s.u64(bodyOff + ordHdrCountOff))
	for i := int64(0); i < count; i++ {
		if int64(s.u64(data+i*ordEntrySize+oeRecordOff)) == recOff {
			for j := i; j < count-1; j++ {
				copyOrderedEntry(s, data, j, j+1)
			}
			s.setU64(bodyOff+ordHdrCountOff, uint64(count-1))
			return nil
		}
	}
	return nil
}

func (orderedIndexBody) lookupEq(s *Segment, bodyOff int64, cols []int, values []Word) ([]int64, error) {
	data := int64(s.u64(bodyOff + ordHdrDataOff))
	count := int64(s.u64(bodyOff + ordHdrCountOff))
	lo := orderedLowerBound(s, data, count, values[0])
	var out []int64
	for i := lo; i < count; i++ {
		word := Word(s.u64(data + i*ordEntrySize + oeWordOff))
		if eq, err := Equal(s, word, values[0]); err != nil {
			return nil, err
		} else if !eq {
			break
		}
		recOff := int64(s.u64(data + i*ordEntrySize + oeRecordOff))
		if recordMatchesAllColumns(s, cols, values, recOff) {
			out = append(out, recOff)
		}
	}
	return out, nil
}

func (orderedIndexBody) lookupRange(s *Segment, bodyOff int64, cols []int, r rangeBounds) ([]int64, error) {
	data := int64(s.u64(bodyOff + ordHdrDataOff))
	count := int64(s.u64(bodyOff + ordHdrCountOff))
	var start int64
	if r.hasLo {
		start = orderedLowerBound(s, data, count, r.lo)
	}
	var out []int64
	for i := start; i < count; i++ {
		word := Word(s.u64(data + i*ordEntrySize + oeWordOff))
		if r.hasLo {
			cl, err := Compare(s, word, r.lo)
			if err != nil {
				return nil, err
			}
			if cl < 0 || (cl == 0 && !r.loInc) {
				continue
			}
		}
		if r.hasHi {
			ch, err := Compare(s, word, r.hi)
			if err != nil {
				return nil, err
			}
			if ch > 0 || (ch == 0 && !r.hiInc) {
				break
			}
		}
		out = append(out, int64(s.u64(data+i*ordEntrySize+oeRecordOff)))
	}
	return out, nil
}

// orderedLowerBound returns the index of the first entry whose key is
// >= target (standard binary-search lower bound).
func orderedLowerBound(s *Segment, data, count int64, target Word) int64 {
	var lo, hi int64 = 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		word := Word(s.u64(data + mid*ordEntrySize + oeWordOff))
		c, err := Compare(s, word, target)
		if err != nil || c < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func recordMatchesAllColumns(s *Segment, cols []int, values []Word, recOff int64) bool {
	for i, col := range cols {
		fw, err := s.GetField(recOff, col)
		if err != nil {
			return false
		}
		eq, err := Equal(s, fw, values[i])
		if err != nil || !eq {
			return false
		}
	}
	return true
}

func copyOrderedEntry(s *Segment, data, dst, src int64) {
	w := s.u64(data + src*ordEntrySize + oeWordOff)
	r := s.u64(data + src*ordEntrySize + oeRecordOff)
	s.setU64(data+dst*ordEntrySize+oeWordOff, w)
	s.setU64(data+dst*ordEntrySize+oeRecordOff, r)
}

const initialOrderedCap = 16

// ensureOrderedCapacity mirrors the hashed index's growth error
// handling: a failed first allocation (capacity still 0, data offset
// still NULL) is propagated so insert cannot write through a NULL data
// pointer into the segment's reserved offset-0 header region. A failed
// re-grow of an already non-empty array is tolerated and keeps the
// existing array in place.
func ensureOrderedCapacity(s *Segment, bodyOff int64) error {
	capacity := int64(s.u64(bodyOff + ordHdrCapOff))
	count := int64(s.u64(bodyOff + ordHdrCountOff))
	if capacity == 0 {
		return growOrderedBody(s, bodyOff, initialOrderedCap)
	}
	if count+1 > capacity {
		_ = growOrderedBody(s, bodyOff, capacity*2)
	}
	return nil
}

func growOrderedBody(s *Segment, bodyOff, newCap int64) error {
	newData, err := s.Alloc(newCap * ordEntrySize)
	if err != nil {
		return err
	}
	oldCap := int64(s.u64(bodyOff + ordHdrCapOff))
	oldData := int64(s.u64(bodyOff + ordHdrDataOff))
	count := int64(s.u64(bodyOff + ordHdrCountOff))
	for i := int64(0); i < count; i++ {
		w := s.u64(oldData + i*ordEntrySize + oeWordOff)
		r := s.u64(oldData + i*ordEntrySize + oeRecordOff)
		s.setU64(newData+i*ordEntrySize+oeWordOff, w)
		s.setU64(newData+i*ordEntrySize+oeRecordOff, r)
	}
	if oldCap > 0 {
		s.Free(oldData, oldCap*ordEntrySize)
	}
	s.setU64(bodyOff+ordHdrCapOff, uint64(newCap))
	s.setU64(bodyOff+ordHdrDataOff, uint64(newData))
	return nil
}
