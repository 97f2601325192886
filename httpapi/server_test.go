package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/tammet/wgdb"
)

func openTestSegment(t *testing.T) *wgdb.Segment {
	t.Helper()
	s, err := wgdb.AttachLocal(4 << 20)
	if err != nil {
		t.Fatalf("AttachLocal: %v", err)
	}
	t.Cleanup(func() { s.Detach() })
	return s
}

func mustEncodeInt(t *testing.T, s *wgdb.Segment, v int64) wgdb.Word {
	t.Helper()
	w, err := wgdb.EncodeInt(s, v)
	if err != nil {
		t.Fatalf("EncodeInt: %v", err)
	}
	return w
}

func TestHandleQueryConstraintEq(t *testing.T) {
	s := openTestSegment(t)
	for i := 0; i < 5; i++ {
		rec, err := s.CreateRecord(2)
		if err != nil {
			t.Fatalf("CreateRecord: %v", err)
		}
		if err := s.SetField(rec.Off, 0, mustEncodeInt(t, s, int64(i))); err != nil {
			t.Fatalf("SetField: %v", err)
		}
		if err := s.SetField(rec.Off, 1, mustEncodeInt(t, s, int64(i*10))); err != nil {
			t.Fatalf("SetField: %v", err)
		}
	}

	srv := NewServer(s)
	req := httptest.NewRequest("GET", "/query?c=0:eq:3", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var rows [][]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if int(rows[0][1].(float64)) != 30 {
		t.Fatalf("row[1] = %v, want 30", rows[0][1])
	}
}

func TestHandleQueryTemplate(t *testing.T) {
	s := openTestSegment(t)
	rec1, _ := s.CreateRecord(2)
	s.SetField(rec1.Off, 0, mustEncodeInt(t, s, 1))
	s.SetField(rec1.Off, 1, mustEncodeInt(t, s, 100))
	rec2, _ := s.CreateRecord(2)
	s.SetField(rec2.Off, 0, mustEncodeInt(t, s, 2))
	s.SetField(rec2.Off, 1, mustEncodeInt(t, s, 200))

	srv := NewServer(s)
	req := httptest.NewRequest("GET", `/query?template=[1,null]`, nil)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)

	if resp.Code != 200 {
		t.Fatalf("status = %d, want 200, body: %s", resp.Code, resp.Body.String())
	}
	var rows [][]any
	if err := json.Unmarshal(resp.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if int(rows[0][0].(float64)) != 1 {
		t.Fatalf("row[0] = %v, want 1", rows[0][0])
	}
}

func TestHandleQueryCSVFormat(t *testing.T) {
	s := openTestSegment(t)
	rec, _ := s.CreateRecord(1)
	s.SetField(rec.Off, 0, mustEncodeInt(t, s, 9))

	srv := NewServer(s)
	req := httptest.NewRequest("GET", "/query?format=csv", nil)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)

	if resp.Code != 200 {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("Content-Type = %q, want text/csv", ct)
	}
	if resp.Body.String() != "9\n" {
		t.Fatalf("body = %q, want %q", resp.Body.String(), "9\n")
	}
}

func TestHandleQueryBadConstraint(t *testing.T) {
	s := openTestSegment(t)
	srv := NewServer(s)
	req := httptest.NewRequest("GET", "/query?c=bad", nil)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)

	if resp.Code != 400 {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}
