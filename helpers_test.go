package wgdb

import "testing"

// openTestSegment returns a freshly attached local segment, cleaned up
// automatically at test end, following the teacher's openTestDB helper
// (t.TempDir-backed fixture plus t.Cleanup).
func openTestSegment(t *testing.T) *Segment {
	t.Helper()
	s, err := AttachLocal(4 << 20)
	if err != nil {
		t.Fatalf("AttachLocal: %v", err)
	}
	t.Cleanup(func() { s.Detach() })
	return s
}
