package wgdb

import "testing"

func TestCheckJSON(t *testing.T) {
	if !CheckJSON([]byte(`{"a": 1}`)) {
		t.Fatalf("CheckJSON rejected valid object")
	}
	if CheckJSON([]byte(`{"a": `)) {
		t.Fatalf("CheckJSON accepted truncated object")
	}
}

// TestParseJSONDocumentObject covers the object->2N-arity mapping and
// the JSON-root flag.
func TestParseJSONDocumentObject(t *testing.T) {
	s := openTestSegment(t)
	rec, err := ParseJSONDocument(s, []byte(`{"name": "ada", "age": 30}`))
	if err != nil {
		t.Fatalf("ParseJSONDocument: %v", err)
	}
	if !s.IsJSONRoot(rec.Off) {
		t.Fatalf("top-level record not marked as JSON root")
	}
	if got := s.RecordLen(rec.Off); got != 4 {
		t.Fatalf("RecordLen = %d, want 4 (2 keys * 2)", got)
	}

	found := map[string]Word{}
	for i := 0; i < 4; i += 2 {
		kw, _ := s.GetField(rec.Off, i)
		k, _, err := DecodeStr(s, kw)
		if err != nil {
			t.Fatalf("DecodeStr key: %v", err)
		}
		vw, _ := s.GetField(rec.Off, i+1)
		found[k] = vw
	}

	nameW, ok := found["name"]
	if !ok {
		t.Fatalf("missing key 'name'")
	}
	name, _, err := DecodeStr(s, nameW)
	if err != nil || name != "ada" {
		t.Fatalf("name = %q, %v, want ada, nil", name, err)
	}

	ageW, ok := found["age"]
	if !ok {
		t.Fatalf("missing key 'age'")
	}
	age, err := DecodeInt(s, ageW)
	if err != nil || age != 30 {
		t.Fatalf("age = %d, %v, want 30, nil", age, err)
	}
}

// TestParseJSONFragmentArray covers the array->N-arity mapping.
func TestParseJSONFragmentArray(t *testing.T) {
	s := openTestSegment(t)
	rec, err := ParseJSONFragment(s, []byte(`[1, 2, 3]`))
	if err != nil {
		t.Fatalf("ParseJSONFragment: %v", err)
	}
	if s.IsJSONRoot(rec.Off) {
		t.Fatalf("fragment record should not be marked as JSON root")
	}
	if got := s.RecordLen(rec.Off); got != 3 {
		t.Fatalf("RecordLen = %d, want 3", got)
	}
	for i, want := range []int64{1, 2, 3} {
		w, _ := s.GetField(rec.Off, i)
		v, err := DecodeInt(s, w)
		if err != nil || v != want {
			t.Fatalf("element %d = %d, %v, want %d, nil", i, v, err, want)
		}
	}
}

// TestParseJSONFragmentScalar covers the bare-scalar->arity-1 mapping.
func TestParseJSONFragmentScalar(t *testing.T) {
	s := openTestSegment(t)
	rec, err := ParseJSONFragment(s, []byte(`42`))
	if err != nil {
		t.Fatalf("ParseJSONFragment: %v", err)
	}
	if got := s.RecordLen(rec.Off); got != 1 {
		t.Fatalf("RecordLen = %d, want 1", got)
	}
	w, _ := s.GetField(rec.Off, 0)
	v, err := DecodeInt(s, w)
	if err != nil || v != 42 {
		t.Fatalf("scalar = %d, %v, want 42, nil", v, err)
	}
}

// TestParseJSONNestedObject covers a nested object value encoding as a
// Record-kind field.
func TestParseJSONNestedObject(t *testing.T) {
	s := openTestSegment(t)
	rec, err := ParseJSONDocument(s, []byte(`{"inner": {"x": 1}}`))
	if err != nil {
		t.Fatalf("ParseJSONDocument: %v", err)
	}
	vw, _ := s.GetField(rec.Off, 1)
	if KindOf(s, vw) != KindRecord {
		t.Fatalf("nested object did not encode as a Record word")
	}
	inner, err := DecodeRecord(s, vw)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if s.RecordLen(inner.Off) != 2 {
		t.Fatalf("inner record arity = %d, want 2", s.RecordLen(inner.Off))
	}
}

func TestParseJSONInvalidSyntax(t *testing.T) {
	s := openTestSegment(t)
	if _, err := ParseJSONFragment(s, []byte(`{not valid`)); err == nil {
		t.Fatalf("expected error parsing invalid json")
	}
}
