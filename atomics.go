// Unsafe pointer views into the mapped segment, used only where
// sync/atomic must operate directly on shared memory: the lock
// primitive's state words (lock_primitive.go) and the lock-free field operations
// (record.go's SetAtomicField/UpdateAtomicField/AddIntAtomicField).
//
// This is the one place genuine unsafe.Pointer arithmetic is required:
// the segment is a []byte (mmap.MMap), and atomic.*Int32/Int64 need a
// real *int32/*int64. Every offset passed in here is a header or field
// offset defined in layout.go and is guaranteed word-aligned by the
// allocator (spec §4.1 "All allocations are word-aligned").
package wgdb

import "unsafe"

func (s *Segment) int32At(off int64) *int32 {
	return (*int32)(unsafe.Pointer(&s.data[off]))
}

func (s *Segment) uint32At(off int64) *uint32 {
	return (*uint32)(unsafe.Pointer(&s.data[off]))
}

func (s *Segment) int64At(off int64) *int64 {
	return (*int64)(unsafe.Pointer(&s.data[off]))
}

func (s *Segment) uint64At(off int64) *uint64 {
	return (*uint64)(unsafe.Pointer(&s.data[off]))
}
