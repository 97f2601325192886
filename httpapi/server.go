// Package httpapi is the "second component" of spec.md §1: a minimal
// read-only HTTP front end over a wgdb segment. It is explicitly
// outside the core engine (spec Non-goals: "network access from within
// the core") and lives in its own package so the engine never imports
// net/http.
//
// Grounded on the ambient stdlib net/http + encoding/csv choice
// recorded in SPEC_FULL.md: no router or framework in the retrieval
// pack is a good fit for one read-only query endpoint, so this is
// plain stdlib, following the teacher's overall preference for a
// small dependency surface.
package httpapi

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tammet/wgdb"
)

// Server answers read-only queries against one attached segment.
type Server struct {
	Seg *wgdb.Segment
}

// NewServer wraps an already-attached segment.
func NewServer(seg *wgdb.Segment) *Server { return &Server{Seg: seg} }

// Handler returns an http.Handler exposing GET /query.
func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", srv.handleQuery)
	return mux
}

// handleQuery accepts:
//   template=<JSON array>   match-record template; each element is a
//                           JSON scalar to match exactly, or null for
//                           "match anything in this column".
//   c=<col>:<op>:<value>    repeatable column constraint; op is one of
//                           eq, ne, lt, lte, gt, gte.
//   format=json|csv          default json.
func (srv *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var templateOff int64
	if t := q.Get("template"); t != "" {
		var scalars []any
		if err := json.Unmarshal([]byte(t), &scalars); err != nil {
			http.Error(w, "bad template: "+err.Error(), http.StatusBadRequest)
			return
		}
		off, err := srv.buildTemplate(scalars)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		templateOff = off
		// The template lives in the segment only for this request.
		defer srv.Seg.DeleteRecord(templateOff)
	}

	constraints, err := parseConstraints(srv.Seg, q["c"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	query, err := wgdb.NewQuery(srv.Seg, templateOff, constraints)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer query.Free()

	var rows [][]any
	for {
		rec, ok, err := query.Fetch()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			break
		}
		if rec.Off == templateOff {
			continue // the template record matches itself
		}
		row, err := srv.decodeRecord(rec)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rows = append(rows, row)
	}

	if q.Get("format") == "csv" {
		writeCSV(w, rows)
		return
	}
	writeJSON(w, rows)
}

func (srv *Server) buildTemplate(scalars []any) (int64, error) {
	rec, err := srv.Seg.CreateRecord(len(scalars))
	if err != nil {
		return 0, err
	}
	for i, v := range scalars {
		word, err := scalarToWord(srv.Seg, v)
		if err != nil {
			return 0, err
		}
		if err := srv.Seg.SetField(rec.Off, i, word); err != nil {
			return 0, err
		}
	}
	return rec.Off, nil
}

func (srv *Server) decodeRecord(rec wgdb.Record) ([]any, error) {
	n := srv.Seg.RecordLen(rec.Off)
	row := make([]any, n)
	for i := 0; i < n; i++ {
		w, err := srv.Seg.GetField(rec.Off, i)
		if err != nil {
			return nil, err
		}
		row[i] = wordToScalar(srv.Seg, w)
	}
	return row, nil
}

var opNames = map[string]wgdb.CompareOp{
	"eq":  wgdb.OpEq,
	"ne":  wgdb.OpNe,
	"lt":  wgdb.OpLt,
	"lte": wgdb.OpLte,
	"gt":  wgdb.OpGt,
	"gte": wgdb.OpGte,
}

func parseConstraints(seg *wgdb.Segment, raw []string) ([]wgdb.Constraint, error) {
	var out []wgdb.Constraint
	for _, c := range raw {
		parts := strings.SplitN(c, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad constraint %q: want col:op:value", c)
		}
		col, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("bad constraint column %q: %w", parts[0], err)
		}
		op, ok := opNames[parts[1]]
		if !ok {
			return nil, fmt.Errorf("bad constraint op %q", parts[1])
		}
		word, err := scalarToWord(seg, inferScalar(parts[2]))
		if err != nil {
			return nil, err
		}
		out = append(out, wgdb.Constraint{Column: col, Op: op, Value: word})
	}
	return out, nil
}

func inferScalar(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func writeJSON(w http.ResponseWriter, rows [][]any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.Encode(rows)
}

func writeCSV(w http.ResponseWriter, rows [][]any) {
	w.Header().Set("Content-Type", "text/csv")
	cw := csv.NewWriter(w)
	defer cw.Flush()
	for _, row := range rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = fmt.Sprint(v)
		}
		cw.Write(rec)
	}
}
