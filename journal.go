// Append-only operation log (spec §4.7/§6 C7): every create_record,
// delete_record and set_field call made while logging is active is
// appended as a small self-describing record to a side file. Replay
// applies the log sequentially to an empty (or previously dumped)
// segment to reconstruct the post-state.
//
// Grounded on the teacher's write.go append style (sequential WriteAt
// through an offset-tracking writer) and on compress.go's pattern of a
// package-level, reused zstd encoder/decoder pair — here wrapping the
// file handle itself rather than a single document, so a long-running
// journal can be compressed without buffering the whole log in memory.
package wgdb

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

type journalOp uint8

const (
	journalCreate   journalOp = 1
	journalDelete   journalOp = 2
	journalSetField journalOp = 3
)

// journalEntry mirrors the wire format of spec §6: "a sequence of
// self-describing records, each {op:u8, record_offset:u64, field:u16,
// old_word:u64, new_word:u64, aux_bytes_len:u32, aux_bytes}".
//
// Replay assumes the target segment begins in the exact state logging
// started from and that every mutating operation since then (and only
// those) was logged: the allocator is a deterministic bump-plus-
// freelist, so replaying the same create/set_field sequence against
// the same starting state reproduces identical record and spill
// offsets without needing to re-derive them from aux_bytes. aux_bytes
// is therefore unused by create/delete/set_field today but is part of
// the wire format so a future entry kind (e.g. a raw-bytes bulk import)
// can carry a variable-length payload without a format change.
type journalEntry struct {
	op        journalOp
	recordOff int64
	field     uint16
	oldWord   uint64
	newWord   uint64
	auxBytes  []byte
}

const journalEntryFixedSize = 1 + 8 + 2 + 8 + 8 + 4

func encodeJournalEntry(e journalEntry) []byte {
	buf := make([]byte, journalEntryFixedSize+len(e.auxBytes))
	buf[0] = byte(e.op)
	binary.LittleEndian.PutUint64(buf[1:9], uint64(e.recordOff))
	binary.LittleEndian.PutUint16(buf[9:11], e.field)
	binary.LittleEndian.PutUint64(buf[11:19], e.oldWord)
	binary.LittleEndian.PutUint64(buf[19:27], e.newWord)
	binary.LittleEndian.PutUint32(buf[27:31], uint32(len(e.auxBytes)))
	copy(buf[31:], e.auxBytes)
	return buf
}

// decodeJournalEntry reads one entry from r. It returns io.EOF only
// when zero bytes could be read at a record boundary; any other
// short read is a truncated, corrupt log.
func decodeJournalEntry(r io.Reader) (journalEntry, error) {
	head := make([]byte, journalEntryFixedSize)
	n, err := io.ReadFull(r, head)
	if err == io.EOF && n == 0 {
		return journalEntry{}, io.EOF
	}
	if err != nil {
		return journalEntry{}, ErrCorruptJournal
	}
	e := journalEntry{
		op:        journalOp(head[0]),
		recordOff: int64(binary.LittleEndian.Uint64(head[1:9])),
		field:     binary.LittleEndian.Uint16(head[9:11]),
		oldWord:   binary.LittleEndian.Uint64(head[11:19]),
		newWord:   binary.LittleEndian.Uint64(head[19:27]),
	}
	auxLen := binary.LittleEndian.Uint32(head[27:31])
	if auxLen > 0 {
		e.auxBytes = make([]byte, auxLen)
		if _, err := io.ReadFull(r, e.auxBytes); err != nil {
			return journalEntry{}, ErrCorruptJournal
		}
	}
	switch e.op {
	case journalCreate, journalDelete, journalSetField:
	default:
		return journalEntry{}, ErrCorruptJournal
	}
	return e, nil
}

// journalWriter owns the open side-file handle for one StartLogging
// session.
type journalWriter struct {
	root *os.Root
	file *os.File
	enc  *zstd.Encoder // nil unless compression was requested
}

func newJournalWriter(dir, name string, compress bool) (*journalWriter, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("wgdb: start_logging: open dir: %w", err)
	}
	f, err := root.Create(name)
	if err != nil {
		root.Close()
		return nil, fmt.Errorf("wgdb: start_logging: create: %w", err)
	}
	jw := &journalWriter{root: root, file: f}
	if compress {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			f.Close()
			root.Close()
			return nil, fmt.Errorf("wgdb: start_logging: zstd: %w", err)
		}
		jw.enc = enc
	}
	return jw, nil
}

func (jw *journalWriter) append(e journalEntry) error {
	buf := encodeJournalEntry(e)
	var err error
	if jw.enc != nil {
		_, err = jw.enc.Write(buf)
		if err == nil {
			err = jw.enc.Flush() // keep every entry readable by a concurrent replay
		}
	} else {
		_, err = jw.file.Write(buf)
	}
	return err
}

func (jw *journalWriter) close() error {
	var firstErr error
	if jw.enc != nil {
		if err := jw.enc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := jw.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := jw.root.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// StartLogging begins appending mutation records to a side file inside
// dir. compress wraps the file in a streaming zstd encoder, flushed
// after every entry so a concurrent reader can replay a prefix of a
// still-open log.
func (s *Segment) StartLogging(dir, name string, compress bool) error {
	if s.journal != nil {
		return fmt.Errorf("wgdb: start_logging: already logging")
	}
	jw, err := newJournalWriter(dir, name, compress)
	if err != nil {
		return err
	}
	s.journal = jw
	s.setU32(hdrLoggingOff, 1)
	return nil
}

// StopLogging ends the current logging session and closes the side
// file.
func (s *Segment) StopLogging() error {
	if s.journal == nil {
		return nil
	}
	err := s.journal.close()
	s.journal = nil
	s.setU32(hdrLoggingOff, 0)
	return err
}

// Logging reports whether a StartLogging session is currently active.
func (s *Segment) Logging() bool { return s.journal != nil }

func (s *Segment) logCreate(off int64, arity int) {
	if s.journal == nil {
		return
	}
	s.journal.append(journalEntry{op: journalCreate, recordOff: off, field: uint16(arity)})
}

func (s *Segment) logDelete(off int64, arity int) {
	if s.journal == nil {
		return
	}
	s.journal.append(journalEntry{op: journalDelete, recordOff: off, field: uint16(arity)})
}

func (s *Segment) logSetField(off int64, idx int, old, updated Word) {
	if s.journal == nil {
		return
	}
	s.journal.append(journalEntry{
		op:        journalSetField,
		recordOff: off,
		field:     uint16(idx),
		oldWord:   uint64(old),
		newWord:   uint64(updated),
	})
}

// ReplayLog applies a previously written journal sequentially to s,
// which must be empty or hold exactly the state the log was started
// from. Replay stops and returns ErrCorruptJournal at the last
// well-formed entry if the log is truncated mid-record (spec §9 open
// question, resolved in favour of the conservative "declare corrupt"
// behaviour) rather than silently dropping the tail.
func ReplayLog(s *Segment, dir, name string, compressed bool) error {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("wgdb: replay_log: open dir: %w", err)
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		return fmt.Errorf("wgdb: replay_log: open: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("wgdb: replay_log: zstd: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	s.AcquireWrite()
	defer s.ReleaseWrite()

	for {
		e, err := decodeJournalEntry(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := applyJournalEntry(s, e); err != nil {
			return err
		}
	}
}

func applyJournalEntry(s *Segment, e journalEntry) error {
	switch e.op {
	case journalCreate:
		rec, err := s.CreateRecord(int(e.field))
		if err != nil {
			return err
		}
		if rec.Off != e.recordOff {
			return fmt.Errorf("%w: create_record offset drift: log %d, replay %d", ErrCorruptJournal, e.recordOff, rec.Off)
		}
		return nil
	case journalDelete:
		if s.RecordLen(e.recordOff) != int(e.field) {
			return fmt.Errorf("%w: delete_record arity mismatch at offset %d", ErrCorruptJournal, e.recordOff)
		}
		return s.DeleteRecord(e.recordOff)
	case journalSetField:
		return s.SetField(e.recordOff, int(e.field), Word(e.newWord))
	default:
		return ErrCorruptJournal
	}
}
