package wgdb

import (
	"os"
	"testing"
)

// TestDumpImportRoundTrip covers spec §8's dump round-trip property:
// dump followed by import_dump into a fresh, equally-sized segment
// reproduces the original segment's record data.
func TestDumpImportRoundTrip(t *testing.T) {
	src := openTestSegment(t)

	rec, err := src.CreateRecord(3)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	w0, _ := EncodeInt(src, 44)
	w1, _ := EncodeStr(src, "a string long enough to spill into its own object", "en")
	if err := src.SetField(rec.Off, 0, w0); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := src.SetField(rec.Off, 1, w1); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	dir := t.TempDir()
	if err := src.Dump(dir, "snapshot.wgd"); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	dstDir := t.TempDir()
	dst, err := Attach(dstDir, "restored.seg", src.Size(), 0o644)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { dst.Detach() })

	if err := ImportDump(dst, dir, "snapshot.wgd"); err != nil {
		t.Fatalf("ImportDump: %v", err)
	}

	gotRecOff := dst.FirstRecord()
	if gotRecOff == 0 {
		t.Fatalf("restored segment has no records")
	}
	got0, err := dst.GetField(gotRecOff, 0)
	if err != nil {
		t.Fatalf("GetField: %v", err)
	}
	v0, err := DecodeInt(dst, got0)
	if err != nil || v0 != 44 {
		t.Fatalf("restored field 0 = %d, %v, want 44, nil", v0, err)
	}

	got1, err := dst.GetField(gotRecOff, 1)
	if err != nil {
		t.Fatalf("GetField: %v", err)
	}
	v1, _, err := DecodeStr(dst, got1)
	if err != nil || v1 != "a string long enough to spill into its own object" {
		t.Fatalf("restored field 1 = %q, %v", v1, err)
	}
}

// TestImportDumpRejectsNonEmptyTarget covers the documented precondition
// that import_dump targets an empty segment.
func TestImportDumpRejectsNonEmptyTarget(t *testing.T) {
	src := openTestSegment(t)
	if _, err := src.CreateRecord(1); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	dir := t.TempDir()
	if err := src.Dump(dir, "snapshot.wgd"); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	dst := openTestSegment(t)
	if _, err := dst.CreateRecord(1); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if err := ImportDump(dst, dir, "snapshot.wgd"); err == nil {
		t.Fatalf("ImportDump into non-empty segment should fail")
	}
}

// TestImportDumpRejectsSizeMismatch covers the size-mismatch guard.
func TestImportDumpRejectsSizeMismatch(t *testing.T) {
	src := openTestSegment(t)
	dir := t.TempDir()
	if err := src.Dump(dir, "snapshot.wgd"); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	dstDir := t.TempDir()
	dst, err := Attach(dstDir, "restored.seg", src.Size()*2, 0o644)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer dst.Detach()

	if err := ImportDump(dst, dir, "snapshot.wgd"); err == nil {
		t.Fatalf("ImportDump with mismatched size should fail")
	}
}

func TestDumpCreatesReadableFile(t *testing.T) {
	src := openTestSegment(t)
	dir := t.TempDir()
	if err := src.Dump(dir, "snapshot.wgd"); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	info, err := os.Stat(dir + "/snapshot.wgd")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 64+src.Size() {
		t.Fatalf("dump file size = %d, want %d", info.Size(), 64+src.Size())
	}
}
