package wgdb

import "testing"

func populateQueryFixture(t *testing.T, s *Segment) []int64 {
	t.Helper()
	var offs []int64
	for i := 0; i < 20; i++ {
		rec, err := s.CreateRecord(4)
		if err != nil {
			t.Fatalf("CreateRecord: %v", err)
		}
		must := func(idx int, v int64) {
			w, err := EncodeInt(s, v)
			if err != nil {
				t.Fatalf("EncodeInt: %v", err)
			}
			if err := s.SetField(rec.Off, idx, w); err != nil {
				t.Fatalf("SetField: %v", err)
			}
		}
		must(0, int64(i%3))
		must(1, 0)
		must(2, int64(i))
		if i < 6 {
			must(3, 6)
		} else {
			must(3, 0)
		}
		offs = append(offs, rec.Off)
	}
	return offs
}

// TestQueryOrderedIndexRange covers spec §8 scenario 2/3: after
// building an ordered index on column 2, "column 2 < 30" returns all
// 20 rows in ascending order.
func TestQueryOrderedIndexRange(t *testing.T) {
	s := openTestSegment(t)
	populateQueryFixture(t, s)

	if _, err := CreateIndex(s, IndexOrdered, []int{2}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	bound, _ := EncodeInt(s, 30)
	q, err := NewQuery(s, 0, []Constraint{{Column: 2, Op: OpLt, Value: bound}})
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	defer q.Free()

	var got []int64
	for {
		rec, ok, err := q.Fetch()
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if !ok {
			break
		}
		fw, _ := s.GetField(rec.Off, 2)
		v, _ := DecodeInt(s, fw)
		got = append(got, v)
	}
	if len(got) != 20 {
		t.Fatalf("got %d rows, want 20", len(got))
	}
	for i, v := range got {
		if v != int64(i) {
			t.Fatalf("row %d = %d, want ascending order (%d)", i, v, i)
		}
	}
}

// TestQueryRangeBothBounds covers "column 2 > 21 and column 2 <= 111"
// style double-bounded ranges (scaled down to this fixture's 0..19
// domain): expects the subset greater than 9 and at most 15.
func TestQueryRangeBothBounds(t *testing.T) {
	s := openTestSegment(t)
	populateQueryFixture(t, s)
	if _, err := CreateIndex(s, IndexOrdered, []int{2}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	lo, _ := EncodeInt(s, 9)
	hi, _ := EncodeInt(s, 15)
	q, err := NewQuery(s, 0, []Constraint{
		{Column: 2, Op: OpGt, Value: lo},
		{Column: 2, Op: OpLte, Value: hi},
	})
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	defer q.Free()

	count := 0
	for {
		_, ok, err := q.Fetch()
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 6 {
		t.Fatalf("count = %d, want 6 (10..15)", count)
	}
}

// TestQueryMatchTemplate covers a match-record template restricting
// results to records whose field 0 equals 0.
func TestQueryMatchTemplate(t *testing.T) {
	s := openTestSegment(t)
	populateQueryFixture(t, s)

	tmpl, err := s.CreateRecord(4)
	if err != nil {
		t.Fatalf("CreateRecord (template): %v", err)
	}
	zero, _ := EncodeInt(s, 0)
	if err := s.SetField(tmpl.Off, 0, zero); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	v, _ := EncodeVar(s, 0)
	for _, idx := range []int{1, 2, 3} {
		if err := s.SetField(tmpl.Off, idx, v); err != nil {
			t.Fatalf("SetField: %v", err)
		}
	}

	q, err := NewQuery(s, tmpl.Off, nil)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	defer q.Free()

	count := 0
	for {
		rec, ok, err := q.Fetch()
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if !ok {
			break
		}
		if rec.Off == tmpl.Off {
			continue // the template record itself also has field 0 == 0
		}
		fw, _ := s.GetField(rec.Off, 0)
		fv, _ := DecodeInt(s, fw)
		if fv != 0 {
			t.Fatalf("matched record with field 0 = %d, want 0", fv)
		}
		count++
	}
	if count == 0 {
		t.Fatalf("expected at least one matching record")
	}
}

// TestQueryIndexedEquivalentToScan covers the indexed/scan equivalence
// property from spec §8: building an index and re-running the same
// query yields the same record set as a full scan.
func TestQueryIndexedEquivalentToScan(t *testing.T) {
	s := openTestSegment(t)
	populateQueryFixture(t, s)

	bound, _ := EncodeInt(s, 14)
	constraints := func() []Constraint {
		return []Constraint{{Column: 2, Op: OpLte, Value: bound}}
	}

	scanQ, err := NewQuery(s, 0, constraints())
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	scanResults := map[int64]bool{}
	for {
		rec, ok, err := scanQ.Fetch()
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if !ok {
			break
		}
		scanResults[rec.Off] = true
	}
	scanQ.Free()

	if _, err := CreateIndex(s, IndexOrdered, []int{2}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	idxQ, err := NewQuery(s, 0, constraints())
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	idxResults := map[int64]bool{}
	for {
		rec, ok, err := idxQ.Fetch()
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if !ok {
			break
		}
		idxResults[rec.Off] = true
	}
	idxQ.Free()

	if len(scanResults) != len(idxResults) {
		t.Fatalf("scan found %d, indexed found %d", len(scanResults), len(idxResults))
	}
	for off := range scanResults {
		if !idxResults[off] {
			t.Fatalf("offset %d present in scan but not indexed result", off)
		}
	}
}

// TestQueryFreedStateErrors covers the Built->Streaming->Exhausted->
// Freed state machine's terminal behaviour.
func TestQueryFreedStateErrors(t *testing.T) {
	s := openTestSegment(t)
	q, err := NewQuery(s, 0, nil)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	q.Free()
	if _, _, err := q.Fetch(); err != ErrBadState {
		t.Fatalf("Fetch after Free = %v, want ErrBadState", err)
	}
}

// TestPrefetchQueryMatchesStreaming covers that prefetch mode returns
// the same record set as ordinary streaming Fetch.
func TestPrefetchQueryMatchesStreaming(t *testing.T) {
	s := openTestSegment(t)
	populateQueryFixture(t, s)
	bound, _ := EncodeInt(s, 10)

	streamQ, _ := NewQuery(s, 0, []Constraint{{Column: 2, Op: OpLt, Value: bound}})
	var streamed []int64
	for {
		rec, ok, err := streamQ.Fetch()
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if !ok {
			break
		}
		streamed = append(streamed, rec.Off)
	}
	streamQ.Free()

	prefetchQ, err := NewPrefetchQuery(s, 0, []Constraint{{Column: 2, Op: OpLt, Value: bound}})
	if err != nil {
		t.Fatalf("NewPrefetchQuery: %v", err)
	}
	var prefetched []int64
	for {
		rec, ok, err := prefetchQ.Fetch()
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if !ok {
			break
		}
		prefetched = append(prefetched, rec.Off)
	}
	prefetchQ.Free()

	if len(streamed) != len(prefetched) {
		t.Fatalf("streamed %d, prefetched %d", len(streamed), len(prefetched))
	}
	for i := range streamed {
		if streamed[i] != prefetched[i] {
			t.Fatalf("order mismatch at %d: streamed %d, prefetched %d", i, streamed[i], prefetched[i])
		}
	}
}
