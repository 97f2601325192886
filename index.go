// Named-index registry (spec §3/§4.5 C5): create/drop/lookup of
// indexes recorded in the segment's fixed-size named-index table, plus
// the Index handle that dispatches to one of two body implementations
// (ttree.go's ordered body, hashindex.go's hashed body) through a small
// interface so the query planner (query.go) doesn't care which one it
// is driving.
//
// Grounded in shape on the teacher's scan.go split between a sorted
// region (binary-searchable) and an unsorted overflow reconciled by a
// rebuild: an ordered index is the sorted region generalised to any
// column, a hashed index trades the sort for O(1) equality lookups,
// and both grow by the same "allocate bigger, rehash/recopy, swap"
// move as repair.go's file compaction.
package wgdb

// IndexKind selects an index body implementation.
type IndexKind uint32

const (
	IndexOrdered IndexKind = 1
	IndexHashed  IndexKind = 2
)

// indexBody is implemented by ttree.go (ordered) and hashindex.go
// (hashed). recOff identifies the record whose column value(s) are
// being inserted/removed; cols gives the record's field indices this
// index is built over, in order.
type indexBody interface {
	insert(s *Segment, bodyOff int64, cols []int, recOff int64) error
	remove(s *Segment, bodyOff int64, cols []int, recOff int64) error
	lookupEq(s *Segment, bodyOff int64, cols []int, values []Word) ([]int64, error)
	lookupRange(s *Segment, bodyOff int64, cols []int, r rangeBounds) ([]int64, error)
}

// rangeBounds describes an ordered-index range scan. A bound with
// has*=false is unconstrained on that side (e.g. "column > 5" has a
// lower bound only); encoding that as a sentinel Word would require a
// value that compares correctly against every Kind, which the total
// order doesn't provide, so the absence is explicit instead.
type rangeBounds struct {
	lo, hi         Word
	hasLo, hasHi   bool
	loInc, hiInc   bool
}

// Index is a handle to one registered index.
type Index struct {
	seg      *Segment
	ID       int
	entryOff int64
	Kind     IndexKind
	Columns  []int
	// TemplateOff is 0 for an index over every record of matching
	// arity, or the offset of a template record that participating
	// records must match (spec "create_multi_index").
	TemplateOff int64
	bodyOff     int64
}

func indexEntryOff(id int) int64 { return indexTableOff + int64(id)*indexEntrySize }

// CreateIndex registers a new index over the given columns for every
// record, building it immediately from whatever records already exist.
func CreateIndex(s *Segment, kind IndexKind, columns []int) (*Index, error) {
	return createIndex(s, kind, columns, 0)
}

// CreateMultiIndex registers an index that only participates for
// records matching templateOff (spec "create_multi_index restricts
// membership to records satisfying a template").
func CreateMultiIndex(s *Segment, kind IndexKind, columns []int, templateOff int64) (*Index, error) {
	return createIndex(s, kind, columns, templateOff)
}

func createIndex(s *Segment, kind IndexKind, columns []int, templateOff int64) (*Index, error) {
	if len(columns) == 0 || len(columns) > maxIndexColumns {
		return nil, ErrOutOfRange
	}
	if id := findEquivalentIndex(s, kind, columns, templateOff); id >= 0 {
		return nil, ErrIndexExists
	}
	id := findFreeIndexSlot(s)
	if id < 0 {
		return nil, ErrIndexFull
	}

	bodyOff, err := s.Alloc(hashHdrSize) // ordHdrSize == hashHdrSize, both 24 bytes
	if err != nil {
		return nil, err
	}
	s.setU64(bodyOff+hashHdrCountOff, 0)
	s.setU64(bodyOff+hashHdrCapOff, 0)
	s.setU64(bodyOff+hashHdrDataOff, 0)

	entryOff := indexEntryOff(id)
	s.setU32(entryOff+ieInUseOff, 1)
	s.setU32(entryOff+ieKindOff, uint32(kind))
	s.setU32(entryOff+ieNumColsOff, uint32(len(columns)))
	for i, c := range columns {
		s.setU32(entryOff+ieColsOff+int64(i)*4, uint32(c))
	}
	s.setU64(entryOff+ieTemplateOff, uint64(templateOff))
	if templateOff != 0 {
		s.setU32(entryOff+ieTemplateLen, uint32(s.RecordLen(templateOff)))
	}
	s.setU64(entryOff+ieBodyOff, uint64(bodyOff))

	ix := &Index{seg: s, ID: id, entryOff: entryOff, Kind: kind, Columns: columns, TemplateOff: templateOff, bodyOff: bodyOff}

	for off := s.FirstRecord(); off != 0; off = s.NextRecord(off) {
		if ix.participates(off) {
			if err := ix.body().insert(s, ix.bodyOff, ix.Columns, off); err != nil {
				return nil, err
			}
		}
	}
	return ix, nil
}

// DropIndex unregisters an index and frees its body storage. It does
// not touch the records that were indexed.
func DropIndex(s *Segment, id int) error {
	entryOff := indexEntryOff(id)
	if s.u32(entryOff+ieInUseOff) == 0 {
		return ErrNoSuchColumn
	}
	bodyOff := int64(s.u64(entryOff + ieBodyOff))
	capacity := int64(s.u64(bodyOff + hashHdrCapOff))
	data := int64(s.u64(bodyOff + hashHdrDataOff))
	kind := IndexKind(s.u32(entryOff + ieKindOff))
	if capacity > 0 {
		entrySize := int64(ordEntrySize)
		if kind == IndexHashed {
			entrySize = hashBucketSize
		}
		s.Free(data, capacity*entrySize)
	}
	s.Free(bodyOff, hashHdrSize)
	s.setU32(entryOff+ieInUseOff, 0)
	return nil
}

// OpenIndex returns a handle to an already-registered index.
func OpenIndex(s *Segment, id int) (*Index, error) {
	entryOff := indexEntryOff(id)
	if s.u32(entryOff+ieInUseOff) == 0 {
		return nil, ErrNoSuchColumn
	}
	numCols := int(s.u32(entryOff + ieNumColsOff))
	cols := make([]int, numCols)
	for i := 0; i < numCols; i++ {
		cols[i] = int(s.u32(entryOff + ieColsOff + int64(i)*4))
	}
	return &Index{
		seg:         s,
		ID:          id,
		entryOff:    entryOff,
		Kind:        IndexKind(s.u32(entryOff + ieKindOff)),
		Columns:     cols,
		TemplateOff: int64(s.u64(entryOff + ieTemplateOff)),
		bodyOff:     int64(s.u64(entryOff + ieBodyOff)),
	}, nil
}

// AllIndexes returns handles for every currently registered index
// (spec "get_all_indexes").
func AllIndexes(s *Segment) []*Index {
	var out []*Index
	for id := 0; id < maxIndexes; id++ {
		if s.u32(indexEntryOff(id)+ieInUseOff) != 0 {
			ix, err := OpenIndex(s, id)
			if err == nil {
				out = append(out, ix)
			}
		}
	}
	return out
}

// ColumnToIndexID returns the ID of the first registered index over
// exactly the given column, or -1 if none exists.
func ColumnToIndexID(s *Segment, column int) int {
	for id := 0; id < maxIndexes; id++ {
		entryOff := indexEntryOff(id)
		if s.u32(entryOff+ieInUseOff) == 0 {
			continue
		}
		if int(s.u32(entryOff+ieNumColsOff)) == 1 && int(s.u32(entryOff+ieColsOff)) == column {
			return id
		}
	}
	return -1
}

func findFreeIndexSlot(s *Segment) int {
	for id := 0; id < maxIndexes; id++ {
		if s.u32(indexEntryOff(id)+ieInUseOff) == 0 {
			return id
		}
	}
	return -1
}

func findEquivalentIndex(s *Segment, kind IndexKind, columns []int, templateOff int64) int {
	for id := 0; id < maxIndexes; id++ {
		entryOff := indexEntryOff(id)
		if s.u32(entryOff+ieInUseOff) == 0 {
			continue
		}
		if IndexKind(s.u32(entryOff+ieKindOff)) != kind {
			continue
		}
		if int64(s.u64(entryOff+ieTemplateOff)) != templateOff {
			continue
		}
		numCols := int(s.u32(entryOff + ieNumColsOff))
		if numCols != len(columns) {
			continue
		}
		same := true
		for i, c := range columns {
			if int(s.u32(entryOff+ieColsOff+int64(i)*4)) != c {
				same = false
				break
			}
		}
		if same {
			return id
		}
	}
	return -1
}

func (ix *Index) body() indexBody {
	if ix.Kind == IndexHashed {
		return hashedIndexBody{}
	}
	return orderedIndexBody{}
}

// participates reports whether a record is within this index's scope:
// every record that has all the indexed columns for an untemplated
// index, or only those also matching the template's non-Null fields
// for a multi_index.
func (ix *Index) participates(recOff int64) bool {
	if !ix.hasColumns(recOff) {
		return false
	}
	if ix.TemplateOff == 0 {
		return true
	}
	return recordMatchesTemplate(ix.seg, ix.TemplateOff, recOff)
}

// indexesCoveringColumn returns every registered index whose column set
// includes col, used by the write path (record.go) to find which
// indexes need maintaining when that column's field changes (spec §2
// write control-flow: C4 -> C3 -> C2 -> C1 -> C5 index maintenance ->
// C4 release).
func indexesCoveringColumn(s *Segment, col int) []*Index {
	var out []*Index
	for _, ix := range AllIndexes(s) {
		for _, c := range ix.Columns {
			if c == col {
				out = append(out, ix)
				break
			}
		}
	}
	return out
}

// Insert adds a record to the index if it is in scope. Called by the
// write path in record.go (CreateRecord, SetField, SetNewField) for
// every registered index whenever a record is created or one of its
// indexed columns changes, so index state never diverges from the
// records it was built from (spec §2/§4.3).
func (ix *Index) Insert(recOff int64) error {
	if !ix.participates(recOff) {
		return nil
	}
	return ix.body().insert(ix.seg, ix.bodyOff, ix.Columns, recOff)
}

// hasColumns reports whether the record's arity covers every indexed
// column.
func (ix *Index) hasColumns(recOff int64) bool {
	n := ix.seg.RecordLen(recOff)
	for _, c := range ix.Columns {
		if c >= n {
			return false
		}
	}
	return true
}

// Remove drops a record from the index.
func (ix *Index) Remove(recOff int64) error {
	if !ix.hasColumns(recOff) {
		return nil // never inserted
	}
	return ix.body().remove(ix.seg, ix.bodyOff, ix.Columns, recOff)
}

// LookupEq returns every record whose indexed columns equal values.
func (ix *Index) LookupEq(values []Word) ([]int64, error) {
	return ix.body().lookupEq(ix.seg, ix.bodyOff, ix.Columns, values)
}

// LookupRange returns every record whose first indexed column falls
// within the given bounds. Only ordered indexes support this; a hashed
// index returns ErrUnsupportedRange.
func (ix *Index) LookupRange(r rangeBounds) ([]int64, error) {
	return ix.body().lookupRange(ix.seg, ix.bodyOff, ix.Columns, r)
}

// recordMatchesTemplate reports whether candidate matches template:
// every non-Null field of template must equal (or be a Var(_) wildcard
// for) the corresponding field of candidate (spec §4.6 match-record).
func recordMatchesTemplate(s *Segment, templateOff, candidateOff int64) bool {
	arity := s.RecordLen(templateOff)
	if arity != s.RecordLen(candidateOff) {
		return false
	}
	for i := 0; i < arity; i++ {
		tw, _ := s.GetField(templateOff, i)
		if tw == 0 {
			continue // Null in the template matches anything
		}
		if kindOf(s, tw) == KindVar {
			continue // wildcard matches anything
		}
		cw, _ := s.GetField(candidateOff, i)
		eq, err := Equal(s, tw, cw)
		if err != nil || !eq {
			return false
		}
	}
	return true
}
