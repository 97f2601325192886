// Hash algorithm implementations used by the pooled-string interning
// table and by hashed-index buckets (spec §3, §4.5).
//
// Grounded directly on the teacher's hash.go, which selects among the
// same three algorithms for a different purpose (document label → ID).
// Here the hash keys bucket positions in segment-resident hash tables
// rather than a string stored in a JSON field.
package wgdb

import (
	"hash/fnv"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Hash algorithm selectors, stored in the segment header
// (hdrHashAlgOff) so every attaching process agrees on the algorithm.
const (
	HashXXHash3 = 1 // default, fastest
	HashFNV1a   = 2 // no external dependencies
	HashBlake2b = 3 // best distribution
)

// hashBytes returns a 64-bit digest of b using the selected algorithm,
// used both to bucket pooled strings in the intern table and to bucket
// keys in a hashed index.
func hashBytes(b []byte, alg uint32) uint64 {
	switch alg {
	case HashFNV1a:
		h := fnv.New64a()
		h.Write(b)
		return h.Sum64()
	case HashBlake2b:
		h, _ := blake2b.New(8, nil)
		h.Write(b)
		sum := h.Sum(nil)
		var v uint64
		for _, bb := range sum {
			v = v<<8 | uint64(bb)
		}
		return v
	default:
		return xxh3.Hash(b)
	}
}

// hashWord hashes the raw bits of a comparable (non-spill) word, and
// for spill words hashes the underlying value's canonical byte form —
// used by hashed-index buckets where the indexed column may be any
// comparable kind, not just strings. Uri words are interned, so their
// raw bits already identify the value. Values of different kinds that
// Compare treats as equal (Int 42 and FixedPoint 42.0) hash differently.
func hashWord(s *Segment, w Word, alg uint32) uint64 {
	switch kindOf(s, w) {
	case KindInt:
		var buf [8]byte
		v, _ := decodeIntRaw(s, w)
		putI64(buf[:], v)
		return hashBytes(buf[:], alg)
	case KindStr:
		str, _, _ := decodeStrRaw(s, w)
		return hashBytes(str, alg)
	case KindDouble, KindFixedPoint, KindDate, KindTime, KindVar, KindAnonConst:
		// Always spilled, with the 8-byte value at the same payload offset.
		return hashBytes(s.bytesAt(decodeSpillOffset(w)+spDoubleValueOff, 8), alg)
	case KindXmlLiteral:
		v, xt, _ := DecodeXmlLiteral(s, w)
		return hashBytes([]byte(xt+"\x00"+v), alg)
	case KindBlob:
		_, data, _ := DecodeBlob(s, w)
		return hashBytes(data, alg)
	default:
		var buf [8]byte
		putU64(buf[:], uint64(w))
		return hashBytes(buf[:], alg)
	}
}

func putI64(buf []byte, v int64) { putU64(buf, uint64(v)) }

func putU64(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}
