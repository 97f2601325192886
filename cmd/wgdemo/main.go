// Command wgdemo is an idiomatic-Go walk through the public API,
// mirroring what original_source/Examples/demo.c and query.c exercise
// in the source language: attach a local segment, create records,
// build an index, run a range query, check delete safety across
// cross references, and dump the segment to a file.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/tammet/wgdb"
)

func main() {
	fmt.Println("********* starting demo ************")

	seg, err := wgdb.AttachLocal(2_000_000)
	if err != nil {
		log.Fatalf("attach: %v", err)
	}
	defer seg.Detach()

	runBasicRecord(seg)
	runIndexedQuery(seg)
	runCrossReference(seg)
	runDump(seg)

	fmt.Println("********* demo complete ************")
}

// runBasicRecord mirrors spec §8 scenario 1: a 3-field record with
// integer data, inspected and partially overwritten.
func runBasicRecord(seg *wgdb.Segment) {
	fmt.Println("creating first record")
	rec, err := seg.CreateRecord(3)
	if err != nil {
		log.Fatalf("create_record: %v", err)
	}

	mustSet(seg, rec.Off, 0, mustInt(seg, 44))
	mustSet(seg, rec.Off, 1, mustInt(seg, -199999))
	mustSet(seg, rec.Off, 2, mustInt(seg, 0))

	fmt.Printf("record_len: %d\n", seg.RecordLen(rec.Off))
	v, _ := seg.GetField(rec.Off, 1)
	n, _ := wgdb.DecodeInt(seg, v)
	fmt.Printf("field 1: %d\n", n)

	mustSet(seg, rec.Off, 1, mustInt(seg, 0))
	v, _ = seg.GetField(rec.Off, 1)
	n, _ = wgdb.DecodeInt(seg, v)
	fmt.Printf("field 1 after reset: %d\n", n)
}

// runIndexedQuery mirrors spec §8 scenario 2: populate 20 rows,
// build an ordered index on column 2, and run a "column 2 < 30" query.
func runIndexedQuery(seg *wgdb.Segment) {
	fmt.Println("populating indexed rows")
	for i := 0; i < 20; i++ {
		rec, err := seg.CreateRecord(4)
		if err != nil {
			log.Fatalf("create_record: %v", err)
		}
		mustSet(seg, rec.Off, 0, mustInt(seg, int64(i%3)))
		mustSet(seg, rec.Off, 1, mustInt(seg, 0))
		mustSet(seg, rec.Off, 2, mustInt(seg, int64(i)))
		if i < 6 {
			mustSet(seg, rec.Off, 3, mustInt(seg, 6))
		} else {
			mustSet(seg, rec.Off, 3, mustInt(seg, 0))
		}
	}

	ix, err := wgdb.CreateIndex(seg, wgdb.IndexOrdered, []int{2})
	if err != nil {
		log.Fatalf("create_index: %v", err)
	}

	lowBound, _ := wgdb.EncodeInt(seg, 30)
	q, err := wgdb.NewQuery(seg, 0, []wgdb.Constraint{
		{Column: 2, Op: wgdb.OpLt, Value: lowBound},
	})
	if err != nil {
		log.Fatalf("make_query: %v", err)
	}
	count := 0
	for {
		_, ok, err := q.Fetch()
		if err != nil {
			log.Fatalf("fetch: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	q.Free()
	fmt.Printf("rows with column 2 < 30: %d (index id %d)\n", count, ix.ID)
}

// runCrossReference mirrors spec §8 scenario 5: cross references
// (b->a, b->c, a->c) and the delete-safety invariant.
func runCrossReference(seg *wgdb.Segment) {
	fmt.Println("cross-reference demo")
	a, _ := seg.CreateRecord(2)
	b, _ := seg.CreateRecord(3)
	c, _ := seg.CreateRecord(4)

	mustSet(seg, b.Off, 2, wgdb.EncodeRecord(a))
	mustSet(seg, b.Off, 1, wgdb.EncodeRecord(c))
	mustSet(seg, a.Off, 0, wgdb.EncodeRecord(c))

	if err := seg.DeleteRecord(c.Off); err == nil {
		log.Fatalf("expected HasReferences deleting c")
	} else {
		fmt.Printf("delete_record(c) correctly refused: %v\n", err)
	}

	mustSet(seg, a.Off, 0, 0)
	mustSet(seg, b.Off, 1, 0)
	if err := seg.DeleteRecord(c.Off); err != nil {
		log.Fatalf("delete_record(c) should now succeed: %v", err)
	}
	fmt.Println("delete_record(c) succeeded after clearing references")
}

func runDump(seg *wgdb.Segment) {
	dir, err := os.MkdirTemp("", "wgdemo-dump-*")
	if err != nil {
		log.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)

	if err := seg.Dump(dir, "snapshot.wgd"); err != nil {
		log.Fatalf("dump: %v", err)
	}
	fmt.Printf("dumped segment to %s/snapshot.wgd\n", dir)
}

func mustInt(seg *wgdb.Segment, v int64) wgdb.Word {
	w, err := wgdb.EncodeInt(seg, v)
	if err != nil {
		log.Fatalf("encode_int: %v", err)
	}
	return w
}

func mustSet(seg *wgdb.Segment, off int64, idx int, w wgdb.Word) {
	if err := seg.SetField(off, idx, w); err != nil {
		log.Fatalf("set_field: %v", err)
	}
}
