// Hashed index body (spec §4.5): the same open-addressed bucket array
// shape as the intern table (intern.go), keyed by a combined hash of
// the indexed columns' values. Since an indexed column is rarely
// unique, each bucket's value is the head of a singly linked chain of
// matching-record nodes rather than a single record offset — the same
// "extra indirection for the non-unique case" the parent chain already
// uses in record.go.
package wgdb

type hashedIndexBody struct{}

const hashedLoadFactorNum, hashedLoadFactorDen = 7, 10

func (hashedIndexBody) insert(s *Segment, bodyOff int64, cols []int, recOff int64) error {
	key, err := hashColumns(s, cols, recOff)
	if err != nil {
		return err
	}
	if err := ensureHashedCapacity(s, bodyOff); err != nil {
		return err
	}
	capacity := int64(s.u64(bodyOff + hashHdrCapOff))
	data := int64(s.u64(bodyOff + hashHdrDataOff))
	start := int64(key % uint64(capacity))

	for i := int64(0); i < capacity; i++ {
		idx := (start + i) % capacity
		bucketOff := data + idx*hashBucketSize
		state := s.u32(bucketOff + hbStateOff)
		if state == hbOccupied && s.u64(bucketOff+hbKeyOff) == key {
			return prependEntryNode(s, bucketOff, recOff)
		}
		if state == hbEmpty {
			node, err := s.Alloc(ixEntryNodeSize)
			if err != nil {
				return err
			}
			s.setU64(node+ixenRecordOff, uint64(recOff))
			s.setU64(node+ixenNextOff, 0)
			s.setU64(bucketOff+hbKeyOff, key)
			s.setU64(bucketOff+hbValueOff, uint64(node))
			s.setU32(bucketOff+hbStateOff, hbOccupied)
			s.setU64(bodyOff+hashHdrCountOff, s.u64(bodyOff+hashHdrCountOff)+1)
			return nil
		}
	}
	return ErrOutOfSpace
}

func (hashedIndexBody) remove(s *Segment, bodyOff int64, cols []int, recOff int64) error {
	key, err := hashColumns(s, cols, recOff)
	if err != nil {
		return err
	}
	capacity := int64(s.u64(bodyOff + hashHdrCapOff))
	if capacity == 0 {
		return nil
	}
	data := int64(s.u64(bodyOff + hashHdrDataOff))
	start := int64(key % uint64(capacity))
	for i := int64(0); i < capacity; i++ {
		idx := (start + i) % capacity
		bucketOff := data + idx*hashBucketSize
		state := s.u32(bucketOff + hbStateOff)
		if state == hbEmpty {
			return nil
		}
		if state == hbOccupied && s.u64(bucketOff+hbKeyOff) == key {
			head := removeEntryNode(s, int64(s.u64(bucketOff+hbValueOff)), recOff)
			if head == 0 {
				s.setU32(bucketOff+hbStateOff, hbTombstone)
				s.setU64(bodyOff+hashHdrCountOff, s.u64(bodyOff+hashHdrCountOff)-1)
			} else {
				s.setU64(bucketOff+hbValueOff, uint64(head))
			}
			return nil
		}
	}
	return nil
}

func (hashedIndexBody) lookupEq(s *Segment, bodyOff int64, cols []int, values []Word) ([]int64, error) {
	capacity := int64(s.u64(bodyOff + hashHdrCapOff))
	if capacity == 0 {
		return nil, nil
	}
	key, err := hashColumnValues(s, values)
	if err != nil {
		return nil, err
	}
	data := int64(s.u64(bodyOff + hashHdrDataOff))
	start := int64(key % uint64(capacity))
	for i := int64(0); i < capacity; i++ {
		idx := (start + i) % capacity
		bucketOff := data + idx*hashBucketSize
		state := s.u32(bucketOff + hbStateOff)
		if state == hbEmpty {
			return nil, nil
		}
		if state == hbOccupied && s.u64(bucketOff+hbKeyOff) == key {
			var out []int64
			node := int64(s.u64(bucketOff + hbValueOff))
			for node != 0 {
				recOff := int64(s.u64(node + ixenRecordOff))
				// Confirm against the actual record: a combined-hash
				// collision between two different tuples is possible
				// and must not surface a false match.
				if recordMatchesAllColumns(s, cols, values, recOff) {
					out = append(out, recOff)
				}
				node = int64(s.u64(node + ixenNextOff))
			}
			return out, nil
		}
	}
	return nil, nil
}

func (hashedIndexBody) lookupRange(s *Segment, bodyOff int64, cols []int, r rangeBounds) ([]int64, error) {
	return nil, ErrUnsupportedRange
}

func hashColumns(s *Segment, cols []int, recOff int64) (uint64, error) {
	values := make([]Word, len(cols))
	for i, c := range cols {
		w, err := s.GetField(recOff, c)
		if err != nil {
			return 0, err
		}
		values[i] = w
	}
	return hashColumnValues(s, values)
}

func hashColumnValues(s *Segment, values []Word) (uint64, error) {
	alg := s.u32(hdrHashAlgOff)
	var acc uint64
	for _, w := range values {
		acc = acc*31 + hashWord(s, w, alg)
	}
	return acc, nil
}

func prependEntryNode(s *Segment, bucketOff int64, recOff int64) error {
	node, err := s.Alloc(ixEntryNodeSize)
	if err != nil {
		return err
	}
	s.setU64(node+ixenRecordOff, uint64(recOff))
	s.setU64(node+ixenNextOff, s.u64(bucketOff+hbValueOff))
	s.setU64(bucketOff+hbValueOff, uint64(node))
	return nil
}

// removeEntryNode deletes the node for recOff from the chain rooted at
// head, returning the (possibly unchanged) new head, or 0 if the chain
// is now empty.
func removeEntryNode(s *Segment, head int64, recOff int64) int64 {
	var prev int64
	cur := head
	for cur != 0 {
		next := int64(s.u64(cur + ixenNextOff))
		if int64(s.u64(cur+ixenRecordOff)) == recOff {
			if prev == 0 {
				head = next
			} else {
				s.setU64(prev+ixenNextOff, uint64(next))
			}
			s.Free(cur, ixEntryNodeSize)
			return head
		}
		prev = cur
		cur = next
	}
	return head
}

const initialHashedCap = 16

// ensureHashedCapacity mirrors intern.go's ensureHashCapacity: a failed
// first allocation (capacity still 0) is propagated, since the caller
// cannot index into a zero-capacity bucket array, while a failed
// re-grow of a non-empty table is tolerated and leaves the existing
// array in place.
func ensureHashedCapacity(s *Segment, bodyOff int64) error {
	capacity := int64(s.u64(bodyOff + hashHdrCapOff))
	count := int64(s.u64(bodyOff + hashHdrCountOff))
	if capacity == 0 {
		return growHashedBody(s, bodyOff, initialHashedCap)
	}
	if (count+1)*hashedLoadFactorDen >= capacity*hashedLoadFactorNum {
		_ = growHashedBody(s, bodyOff, capacity*2)
	}
	return nil
}

func growHashedBody(s *Segment, bodyOff, newCap int64) error {
	newData, err := s.Alloc(newCap * hashBucketSize)
	if err != nil {
		return err
	}
	for i := int64(0); i < newCap; i++ {
		s.setU32(newData+i*hashBucketSize+hbStateOff, hbEmpty)
	}

	oldCap := int64(s.u64(bodyOff + hashHdrCapOff))
	oldData := int64(s.u64(bodyOff + hashHdrDataOff))
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
	s.setU64(bodyOff+hashHdrCapOff, uint64(newCap))
	s.setU64(bodyOff+hashHdrDataOff, uint64(newData))
	return nil
}
