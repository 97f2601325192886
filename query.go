// Query planner and executor (spec §4.6 C6): a match-record template
// plus an arglist of column constraints compiled once into a plan
// (index-driven or full scan), then walked through a
// Built -> Streaming -> Exhausted -> Freed state machine one record at
// a time via Fetch, or all at once in prefetch mode.
//
// Grounded on the teacher's scan.go/search.go split between a fast
// indexed path and a fallback linear pass: here the planner picks
// between a registered index and a full scan the same way scan.go
// picks between its sorted binary search and sparse's linear scan,
// just decided once per query instead of per call.
package wgdb

// CompareOp is a query constraint's comparator (spec §4.6, mirroring
// WG_COND_* bit flags).
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLte
	OpGt
	OpGte
)

// Constraint restricts one column of every candidate record.
type Constraint struct {
	Column int
	Op     CompareOp
	Value  Word
}

// QueryState is the query object's position in its lifecycle.
type QueryState int

const (
	QueryBuilt QueryState = iota
	QueryStreaming
	QueryExhausted
	QueryFreed
)

// Scoring constants for planner cost comparison (spec §4.6: hashed-eq
// cheapest, then ordered-eq, then ordered-range, then no index).
const (
	costHashedEq    = 1
	costOrderedEq   = 2
	costOrderedRange = 3
	costNone        = 1 << 30
)

type queryPlan struct {
	driver      *Constraint // nil means full scan
	driverIndex *Index
}

// Query is a compiled match-record + constraint query against a
// segment, walked via Fetch.
type Query struct {
	seg         *Segment
	state       QueryState
	templateOff int64
	constraints []Constraint
	plan        queryPlan

	scanCursor int64 // full-scan driver: next record offset, 0 = start

	candidates    []int64 // index-driven driver's remaining candidates
	candidatePos  int

	prefetch      bool
	pool          *ScratchPool
	prefetched    []int64
	prefetchedPos int

	lockTokenAtBuild uint32
}

// NewQuery compiles a query. templateOff may be 0 for "match every
// record regardless of shape"; constraints add per-column predicates
// evaluated against whatever arity each candidate record actually has
// (spec: an out-of-range column on a given candidate simply fails to
// match that candidate rather than erroring the whole query, since
// records in this engine are not required to share a common schema).
func NewQuery(s *Segment, templateOff int64, constraints []Constraint) (*Query, error) {
	q := &Query{
		seg:              s,
		state:            QueryBuilt,
		templateOff:      templateOff,
		constraints:      constraints,
		lockTokenAtBuild: s.LockToken(),
	}
	q.plan = planQuery(s, constraints)
	return q, nil
}

// NewPrefetchQuery compiles a query that materialises every matching
// record up front on the first Fetch call, trading memory (allocated
// from a process-local ScratchPool, freed with the query) for fewer
// index/lock round trips on a query the caller will drain completely.
func NewPrefetchQuery(s *Segment, templateOff int64, constraints []Constraint) (*Query, error) {
	q, err := NewQuery(s, templateOff, constraints)
	if err != nil {
		return nil, err
	}
	q.prefetch = true
	q.pool = NewScratchPool()
	return q, nil
}

// planQuery picks the cheapest available driver: the constraint (if
// any) with a registered index giving the lowest cost, falling back to
// a full scan when no constraint has a usable index. Ties break on
// the lowest column number so planning is deterministic.
func planQuery(s *Segment, constraints []Constraint) queryPlan {
	best := queryPlan{}
	bestCost := costNone
	for i := range constraints {
		c := &constraints[i]
		id := ColumnToIndexID(s, c.Column)
		if id < 0 {
			continue
		}
		ix, err := OpenIndex(s, id)
		if err != nil {
			continue
		}
		cost := costNone
		switch {
		case c.Op == OpEq && ix.Kind == IndexHashed:
			cost = costHashedEq
		case c.Op == OpEq && ix.Kind == IndexOrdered:
			cost = costOrderedEq
		case ix.Kind == IndexOrdered && isRangeOp(c.Op):
			cost = costOrderedRange
		default:
			continue
		}
		if cost < bestCost || (cost == bestCost && best.driver != nil && c.Column < best.driver.Column) {
			bestCost = cost
			best = queryPlan{driver: c, driverIndex: ix}
		}
	}
	return best
}

func isRangeOp(op CompareOp) bool {
	return op == OpLt || op == OpLte || op == OpGt || op == OpGte
}

// Fetch advances the query and returns the next matching record. The
// second return value is false once the query is exhausted. Calling
// Fetch on a Freed query returns ErrBadState.
func (q *Query) Fetch() (Record, bool, error) {
	if q.state == QueryFreed {
		return Record{}, false, ErrBadState
	}
	if q.state == QueryExhausted {
		return Record{}, false, nil
	}
	if q.state == QueryBuilt {
		if err := q.start(); err != nil {
			return Record{}, false, err
		}
		q.state = QueryStreaming
	}
	if q.prefetch {
		return q.fetchPrefetched()
	}
	return q.fetchStreaming()
}

func (q *Query) start() error {
	if q.plan.driver != nil {
		candidates, err := q.driverCandidates()
		if err != nil {
			return err
		}
		q.candidates = candidates
	} else {
		q.scanCursor = q.seg.FirstRecord()
	}
	if q.prefetch {
		return q.materialise()
	}
	return nil
}

func (q *Query) driverCandidates() ([]int64, error) {
	d := q.plan.driver
	switch {
	case d.Op == OpEq:
		return q.plan.driverIndex.LookupEq([]Word{d.Value})
	case isRangeOp(d.Op):
		var r rangeBounds
		switch d.Op {
		case OpLt:
			r = rangeBounds{hasHi: true, hi: d.Value, hiInc: false}
		case OpLte:
			r = rangeBounds{hasHi: true, hi: d.Value, hiInc: true}
		case OpGt:
			r = rangeBounds{hasLo: true, lo: d.Value, loInc: false}
		case OpGte:
			r = rangeBounds{hasLo: true, lo: d.Value, loInc: true}
		}
		return q.plan.driverIndex.LookupRange(r)
	}
	return nil, ErrInvalidConstraint
}

func (q *Query) materialise() error {
	var all []int64
	if q.plan.driver != nil {
		for _, off := range q.candidates {
			if q.matchesNonDriver(off) {
				all = append(all, off)
			}
		}
	} else {
		for off := q.seg.FirstRecord(); off != 0; off = q.seg.NextRecord(off) {
			if q.matches(off) {
				all = append(all, off)
			}
		}
	}
	buf := q.pool.AllocInt64s(len(all))
	copy(buf, all)
	q.prefetched = buf
	return nil
}

func (q *Query) fetchPrefetched() (Record, bool, error) {
	if q.prefetchedPos >= len(q.prefetched) {
		q.state = QueryExhausted
		return Record{}, false, nil
	}
	off := q.prefetched[q.prefetchedPos]
	q.prefetchedPos++
	return Record{Seg: q.seg, Off: off}, true, nil
}

func (q *Query) fetchStreaming() (Record, bool, error) {
	if q.plan.driver != nil {
		for q.candidatePos < len(q.candidates) {
			off := q.candidates[q.candidatePos]
			q.candidatePos++
			if q.matchesNonDriver(off) {
				return Record{Seg: q.seg, Off: off}, true, nil
			}
		}
		q.state = QueryExhausted
		return Record{}, false, nil
	}

	for off := q.scanCursor; off != 0; off = q.seg.NextRecord(off) {
		q.scanCursor = q.seg.NextRecord(off)
		if q.matches(off) {
			return Record{Seg: q.seg, Off: off}, true, nil
		}
	}
	q.state = QueryExhausted
	return Record{}, false, nil
}

// matches evaluates the template and every constraint against off.
func (q *Query) matches(off int64) bool {
	if q.templateOff != 0 && !recordMatchesTemplate(q.seg, q.templateOff, off) {
		return false
	}
	for i := range q.constraints {
		if !q.evalConstraint(&q.constraints[i], off) {
			return false
		}
	}
	return true
}

// matchesNonDriver evaluates everything except the constraint the plan
// is already using as the candidate source.
func (q *Query) matchesNonDriver(off int64) bool {
	if q.templateOff != 0 && !recordMatchesTemplate(q.seg, q.templateOff, off) {
		return false
	}
	for i := range q.constraints {
		c := &q.constraints[i]
		if q.plan.driver == c {
			continue
		}
		if !q.evalConstraint(c, off) {
			return false
		}
	}
	return true
}

func (q *Query) evalConstraint(c *Constraint, recOff int64) bool {
	if c.Column < 0 || c.Column >= q.seg.RecordLen(recOff) {
		return false
	}
	fw, err := q.seg.GetField(recOff, c.Column)
	if err != nil {
		return false
	}
	cmp, err := Compare(q.seg, fw, c.Value)
	if err != nil {
		return false
	}
	switch c.Op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	default:
		return false
	}
}

// Free releases any prefetch scratch storage and moves the query to
// the Freed state. Fetch after Free returns ErrBadState.
func (q *Query) Free() {
	if q.pool != nil {
		q.pool.FreePool()
	}
	q.state = QueryFreed
}

// State reports the query's current lifecycle state.
func (q *Query) State() QueryState { return q.state }

// StaleSinceBuild reports whether a write has committed against the
// segment since this query was built, for callers that want to detect
// a concurrently-mutated result set (spec §4.4's lock token).
func (q *Query) StaleSinceBuild() bool {
	return q.seg.LockToken() != q.lockTokenAtBuild
}
