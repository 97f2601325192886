// Whole-segment snapshot to file and back (spec §4.7/§6 C7).
//
// Grounded on the teacher's repair.go: write the new image to a
// sibling ".tmp" file inside the same os.Root sandbox, Sync, then
// Rename over the final name so a crash mid-write leaves only the
// never-renamed .tmp behind and Attach's existing fresh-vs-stale
// header check is unaffected. Dump differs from repair in that it
// copies the segment byte-for-byte rather than reorganising it — there
// is nothing here to sort or compact.
package wgdb

import (
	"fmt"
	"os"
)

// Dump acquires the writer lock for the duration of the copy (spec §9
// open question: stricter than the source's ambiguous brief lock) and
// writes the segment verbatim to path, preceded by the fixed 64-byte
// dump header.
func (s *Segment) Dump(dir, name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.AcquireWrite()
	defer s.ReleaseWrite()

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("wgdb: dump: open dir: %w", err)
	}
	defer root.Close()

	tmpName := name + ".tmp"
	f, err := root.Create(tmpName)
	if err != nil {
		return fmt.Errorf("wgdb: dump: create: %w", err)
	}

	hdr := encodeDumpHeader(s.snapshot())
	if _, err := f.Write(hdr); err != nil {
		f.Close()
		return fmt.Errorf("wgdb: dump: write header: %w", err)
	}
	if _, err := f.Write(s.data); err != nil {
		f.Close()
		return fmt.Errorf("wgdb: dump: write body: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("wgdb: dump: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("wgdb: dump: close: %w", err)
	}
	if err := root.Rename(tmpName, name); err != nil {
		return fmt.Errorf("wgdb: dump: rename: %w", err)
	}
	return nil
}

// ImportDump loads a dump file into a freshly attached, empty segment
// of the same size (spec "precondition: target segment is empty and
// same size as the source"). No address fixup is required: every
// pointer in the image is already a segment-relative offset.
func ImportDump(s *Segment, dir, name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.u64(hdrRecordCountOff) != 0 {
		return fmt.Errorf("wgdb: import_dump: target segment is not empty")
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("wgdb: import_dump: open dir: %w", err)
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		return fmt.Errorf("wgdb: import_dump: open: %w", err)
	}
	defer f.Close()

	hdrBuf := make([]byte, 64)
	if _, err := readFull(f, hdrBuf); err != nil {
		return fmt.Errorf("wgdb: import_dump: read header: %w", err)
	}
	hdr, err := decodeDumpHeader(hdrBuf)
	if err != nil {
		return err
	}
	if int64(hdr.SegmentSize) != int64(len(s.data)) {
		return fmt.Errorf("wgdb: import_dump: segment size mismatch: dump %d, target %d", hdr.SegmentSize, len(s.data))
	}

	s.AcquireWrite()
	defer s.ReleaseWrite()

	if _, err := readFull(f, s.data); err != nil {
		return fmt.Errorf("wgdb: import_dump: read body: %w", err)
	}
	return nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
