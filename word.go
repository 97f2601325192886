// Tagged encoded word: the dynamically typed value representation that
// packs into one machine word, transparently spilling into a typed
// segment object when it doesn't fit (spec §4.2 C2).
//
// This is the sealed-variant encoding spec.md §9 calls for: a newtype
// over the machine word (Word = uint64) with constructor/accessor
// functions enforcing the tag discipline. Consumers never see the raw
// bits — only Kind, Encode*/Decode* and Compare.
package wgdb

import (
	"encoding/binary"
	"math"
)

// Word is one encoded machine word: a kind tag in its low bits plus
// either an inline payload or a segment offset to a typed spill object.
type Word uint64

// Kind enumerates the dynamic types a Word may carry (spec §4.2).
type Kind int

const (
	KindNull Kind = iota
	KindRecord
	KindInt
	KindDouble
	KindFixedPoint
	KindStr
	KindXmlLiteral
	KindUri
	KindBlob
	KindChar
	KindDate
	KindTime
	KindAnonConst
	KindVar
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindRecord:
		return "Record"
	case KindInt:
		return "Int"
	case KindDouble:
		return "Double"
	case KindFixedPoint:
		return "FixedPoint"
	case KindStr:
		return "Str"
	case KindXmlLiteral:
		return "XmlLiteral"
	case KindUri:
		return "Uri"
	case KindBlob:
		return "Blob"
	case KindChar:
		return "Char"
	case KindDate:
		return "Date"
	case KindTime:
		return "Time"
	case KindAnonConst:
		return "AnonConst"
	case KindVar:
		return "Var"
	default:
		return "Unknown"
	}
}

// Illegal is the distinguished sentinel: never produced by a successful
// encode, and compares unequal to every valid word (spec §4.2/§6).
const Illegal = illegalWord

func tagOf(w Word) int {
	if w == 0 {
		return tagNull
	}
	return int(w & 0x7)
}

func decodeSpillOffset(w Word) int64 { return int64(uint64(w) &^ 0x7) }

func makeSpillWord(off int64) Word { return Word(uint64(off) | tagSpill) }

// kindOf reports the dynamic kind of a word without requiring the
// caller to know it in advance (spec "GetEncodedType").
func kindOf(s *Segment, w Word) Kind {
	if w == 0 {
		return KindNull
	}
	switch tagOf(w) {
	case tagInt:
		return KindInt
	case tagRecord:
		return KindRecord
	case tagChar:
		return KindChar
	case tagStrShort:
		return KindStr
	case tagSpill:
		return Kind(s.byteAt(decodeSpillOffset(w)))
	default:
		return KindNull
	}
}

// KindOf is the exported form (spec "get_encoded_type").
func KindOf(s *Segment, w Word) Kind { return kindOf(s, w) }

// Release decrements the refcount of any spilled object a word
// references (Str, Uri), freeing it at zero; other spill kinds are
// singly owned and are freed directly. Inline words are a no-op (spec
// §3 "freeing an inline value is a no-op").
func Release(s *Segment, w Word) {
	if w == 0 || w == illegalWord || tagOf(w) != tagSpill {
		return
	}
	off := decodeSpillOffset(w)
	k := Kind(s.byteAt(off))
	switch k {
	case KindStr:
		releaseRefcounted(s, off, spStrRefcountOff, strSpillSize(s, off))
	case KindUri:
		releaseRefcounted(s, off, spUriRefcountOff, uriSpillSize(s, off))
	default:
		s.Free(off, spillSize(s, k, off))
	}
}

// FreeEncoded is the exported spec-named alias for Release.
func FreeEncoded(s *Segment, w Word) { Release(s, w) }

func releaseRefcounted(s *Segment, off int64, refcountOff, size int64) {
	rc := s.u32(off + refcountOff)
	if rc <= 1 {
		internRemove(s, off)
		s.Free(off, size)
		return
	}
	s.setU32(off+refcountOff, rc-1)
}

func strSpillSize(s *Segment, off int64) int64 {
	langLen := int64(s.u32(off + spStrLangLenOff))
	strLen := int64(s.u32(off + spStrLenOff))
	return spStrDataOff + langLen + strLen
}

func uriSpillSize(s *Segment, off int64) int64 {
	prefixLen := int64(s.u32(off + spUriPrefixLenOff))
	localLen := int64(s.u32(off + spUriLocalLenOff))
	return spUriDataOff + prefixLen + localLen
}

func spillSize(s *Segment, k Kind, off int64) int64 {
	switch k {
	case KindDouble:
		return spDoubleSize
	case KindFixedPoint:
		return spFixedSize
	case KindInt:
		return spIntSize
	case KindDate:
		return spDateSize
	case KindTime:
		return spTimeSize
	case KindVar:
		return spVarSize
	case KindAnonConst:
		return spAnonSize
	case KindXmlLiteral:
		xsdLen := int64(s.u32(off + spXmlXsdLenOff))
		valLen := int64(s.u32(off + spXmlValLenOff))
		return spXmlDataOff + xsdLen + valLen
	case KindBlob:
		length := int64(s.u32(off + spBlobLenOff))
		return spBlobDataOff + length
	case KindStr:
		return strSpillSize(s, off)
	case KindUri:
		return uriSpillSize(s, off)
	default:
		return spIntSize
	}
}

// ---- Null ----

// EncodeNull returns the zero word (spec: "encode(Null, _) returns zero").
func EncodeNull(*Segment) Word { return 0 }

// DecodeNull reports whether w is the Null word.
func DecodeNull(w Word) bool { return w == 0 }

// ---- Record ----

func encodeRecordOffset(off int64) Word { return Word(uint64(off) | tagRecord) }

func decodeRecordOffset(w Word) (int64, error) {
	if w == 0 || tagOf(w) != tagRecord {
		return 0, ErrTypeMismatch
	}
	return int64(uint64(w) &^ 0x7), nil
}

// ---- Int ----

const intInlineBits = 61

var intInlineMin = -(int64(1) << (intInlineBits - 1))
var intInlineMax = (int64(1) << (intInlineBits - 1)) - 1

// EncodeInt encodes an integer, spilling to a boxed 64-bit int when it
// does not fit the inline 61-bit payload (spec "overflow spills to a
// full-word boxed int").
func EncodeInt(s *Segment, v int64) (Word, error) {
	if v >= intInlineMin && v <= intInlineMax {
		raw := uint64(v) & ((uint64(1) << 61) - 1)
		return Word(raw<<3 | tagInt), nil
	}
	off, err := s.Alloc(spIntSize)
	if err != nil {
		return illegalWord, err
	}
	s.setByteAt(off+spillKindOff, byte(KindInt))
	s.setU64(off+spIntValueOff, uint64(v))
	return makeSpillWord(off), nil
}

// DecodeInt decodes an Int word, whether inline or boxed.
func DecodeInt(s *Segment, w Word) (int64, error) { return decodeIntRaw(s, w) }

func decodeIntRaw(s *Segment, w Word) (int64, error) {
	switch tagOf(w) {
	case tagInt:
		raw := uint64(w) >> 3
		if raw&(1<<60) != 0 {
			raw |= ^uint64(0) << 61
		}
		return int64(raw), nil
	case tagSpill:
		off := decodeSpillOffset(w)
		if Kind(s.byteAt(off)) != KindInt {
			return 0, ErrTypeMismatch
		}
		return int64(s.u64(off + spIntValueOff)), nil
	default:
		return 0, ErrTypeMismatch
	}
}

// ---- Double ----

func EncodeDouble(s *Segment, v float64) (Word, error) {
	off, err := s.Alloc(spDoubleSize)
	if err != nil {
		return illegalWord, err
	}
	s.setByteAt(off+spillKindOff, byte(KindDouble))
	binary.LittleEndian.PutUint64(s.bytesAt(off+spDoubleValueOff, 8), math.Float64bits(v))
	return makeSpillWord(off), nil
}

func DecodeDouble(s *Segment, w Word) (float64, error) {
	off, ok := spillOfKind(s, w, KindDouble)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(s.bytesAt(off+spDoubleValueOff, 8))), nil
}

// ---- FixedPoint ----

// EncodeFixedPoint stores v at the documented decimal scale
// (fixedPointScale), e.g. 1.5 -> 1_500_000 at scale 1e6.
func EncodeFixedPoint(s *Segment, v float64) (Word, error) {
	off, err := s.Alloc(spFixedSize)
	if err != nil {
		return illegalWord, err
	}
	s.setByteAt(off+spillKindOff, byte(KindFixedPoint))
	scaled := int64(v*fixedPointScale + signCorrection(v))
	s.setU64(off+spFixedValueOff, uint64(scaled))
	return makeSpillWord(off), nil
}

func signCorrection(v float64) float64 {
	if v < 0 {
		return -0.5
	}
	return 0.5
}

func DecodeFixedPoint(s *Segment, w Word) (float64, error) {
	scaled, err := decodeFixedPointScaled(s, w)
	if err != nil {
		return 0, err
	}
	return float64(scaled) / fixedPointScale, nil
}

// decodeFixedPointScaled returns a FixedPoint value's underlying scaled
// integer without the float64 division DecodeFixedPoint applies, so
// callers needing exact comparisons (compare.go) aren't routed through
// a lossy conversion.
func decodeFixedPointScaled(s *Segment, w Word) (int64, error) {
	off, ok := spillOfKind(s, w, KindFixedPoint)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return int64(s.u64(off + spFixedValueOff)), nil
}

// ---- Char ----

func EncodeChar(_ *Segment, c byte) (Word, error) {
	return Word(uint64(c)<<3 | tagChar), nil
}

func DecodeChar(_ *Segment, w Word) (byte, error) {
	if tagOf(w) != tagChar {
		return 0, ErrTypeMismatch
	}
	return byte(w >> 3), nil
}

// ---- Str ----

// EncodeStr interns equal (value, lang) pairs to the same word (spec
// "two encode_str(s, lang) calls with equal (s, lang) return equal
// words"). Short, language-free strings are stored inline.
func EncodeStr(s *Segment, value, lang string) (Word, error) {
	b := []byte(value)
	if lang == "" && len(b) <= 7 {
		return wordInlineStr(b), nil
	}
	off, err := internStr(s, b, []byte(lang))
	if err != nil {
		return illegalWord, err
	}
	return makeSpillWord(off), nil
}

func wordInlineStr(b []byte) Word {
	var buf [8]byte
	buf[0] = byte(tagStrShort) | byte(len(b))<<3
	copy(buf[1:], b)
	return Word(binary.LittleEndian.Uint64(buf[:]))
}

func isInlineStr(w Word) bool { return w != 0 && tagOf(w) == tagStrShort }

func inlineStrBytes(w Word) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(w))
	length := int(buf[0] >> 3)
	out := make([]byte, length)
	copy(out, buf[1:1+length])
	return out
}

func DecodeStr(s *Segment, w Word) (value, lang string, err error) {
	b, l, err := decodeStrRaw(s, w)
	return string(b), string(l), err
}

func decodeStrRaw(s *Segment, w Word) (value, lang []byte, err error) {
	if isInlineStr(w) {
		return inlineStrBytes(w), nil, nil
	}
	if tagOf(w) != tagSpill {
		return nil, nil, ErrTypeMismatch
	}
	off := decodeSpillOffset(w)
	if Kind(s.byteAt(off)) != KindStr {
		return nil, nil, ErrTypeMismatch
	}
	langLen := int(s.u32(off + spStrLangLenOff))
	strLen := int(s.u32(off + spStrLenOff))
	data := s.bytesAt(off+spStrDataOff, langLen+strLen)
	lang = append([]byte{}, data[:langLen]...)
	value = append([]byte{}, data[langLen:]...)
	return value, lang, nil
}

// ---- Uri ----

// EncodeUri interns the (prefix, local) pair as one spill object, so
// equal pairs encode to the same word. A prefix is not shared between
// different local parts: each pair's spill object holds its own copy.
func EncodeUri(s *Segment, prefix, local string) (Word, error) {
	off, err := internUri(s, []byte(prefix), []byte(local))
	if err != nil {
		return illegalWord, err
	}
	return makeSpillWord(off), nil
}

func DecodeUri(s *Segment, w Word) (prefix, local string, err error) {
	off, ok := spillOfKind(s, w, KindUri)
	if !ok {
		return "", "", ErrTypeMismatch
	}
	prefixLen := int(s.u32(off + spUriPrefixLenOff))
	localLen := int(s.u32(off + spUriLocalLenOff))
	data := s.bytesAt(off+spUriDataOff, prefixLen+localLen)
	return string(data[:prefixLen]), string(data[prefixLen:]), nil
}

// ---- XmlLiteral ----

func EncodeXmlLiteral(s *Segment, value, xsdType string) (Word, error) {
	v, x := []byte(value), []byte(xsdType)
	n := spXmlDataOff + int64(len(x)) + int64(len(v))
	off, err := s.Alloc(n)
	if err != nil {
		return illegalWord, err
	}
	s.setByteAt(off+spillKindOff, byte(KindXmlLiteral))
	s.setU32(off+spXmlXsdLenOff, uint32(len(x)))
	s.setU32(off+spXmlValLenOff, uint32(len(v)))
	s.putBytes(off+spXmlDataOff, x)
	s.putBytes(off+spXmlDataOff+int64(len(x)), v)
	return makeSpillWord(off), nil
}

func DecodeXmlLiteral(s *Segment, w Word) (value, xsdType string, err error) {
	off, ok := spillOfKind(s, w, KindXmlLiteral)
	if !ok {
		return "", "", ErrTypeMismatch
	}
	xsdLen := int(s.u32(off + spXmlXsdLenOff))
	valLen := int(s.u32(off + spXmlValLenOff))
	data := s.bytesAt(off+spXmlDataOff, xsdLen+valLen)
	return string(data[xsdLen:]), string(data[:xsdLen]), nil
}

// ---- Blob ----

func EncodeBlob(s *Segment, blobType int32, data []byte) (Word, error) {
	n := spBlobDataOff + int64(len(data))
	off, err := s.Alloc(n)
	if err != nil {
		return illegalWord, err
	}
	s.setByteAt(off+spillKindOff, byte(KindBlob))
	s.setU32(off+spBlobTypeOff, uint32(blobType))
	s.setU32(off+spBlobLenOff, uint32(len(data)))
	s.putBytes(off+spBlobDataOff, data)
	return makeSpillWord(off), nil
}

func DecodeBlob(s *Segment, w Word) (blobType int32, data []byte, err error) {
	off, ok := spillOfKind(s, w, KindBlob)
	if !ok {
		return 0, nil, ErrTypeMismatch
	}
	length := int(s.u32(off + spBlobLenOff))
	out := make([]byte, length)
	copy(out, s.bytesAt(off+spBlobDataOff, length))
	return int32(s.u32(off + spBlobTypeOff)), out, nil
}

// ---- Date / Time ----

func EncodeDate(s *Segment, days int32) (Word, error) {
	off, err := s.Alloc(spDateSize)
	if err != nil {
		return illegalWord, err
	}
	s.setByteAt(off+spillKindOff, byte(KindDate))
	s.setU64(off+spDateValueOff, uint64(int64(days)))
	return makeSpillWord(off), nil
}

func DecodeDate(s *Segment, w Word) (int32, error) {
	off, ok := spillOfKind(s, w, KindDate)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return int32(int64(s.u64(off + spDateValueOff))), nil
}

func EncodeTime(s *Segment, millisSinceMidnight int32) (Word, error) {
	off, err := s.Alloc(spTimeSize)
	if err != nil {
		return illegalWord, err
	}
	s.setByteAt(off+spillKindOff, byte(KindTime))
	s.setU64(off+spTimeValueOff, uint64(int64(millisSinceMidnight)))
	return makeSpillWord(off), nil
}

func DecodeTime(s *Segment, w Word) (int32, error) {
	off, ok := spillOfKind(s, w, KindTime)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return int32(int64(s.u64(off + spTimeValueOff))), nil
}

// ---- Var / AnonConst ----

// EncodeVar constructs the Var(k) wildcard marker used by match-record
// templates (spec §4.6).
func EncodeVar(s *Segment, index int32) (Word, error) {
	off, err := s.Alloc(spVarSize)
	if err != nil {
		return illegalWord, err
	}
	s.setByteAt(off+spillKindOff, byte(KindVar))
	s.setU64(off+spVarIndexOff, uint64(int64(index)))
	return makeSpillWord(off), nil
}

func DecodeVar(s *Segment, w Word) (int32, error) {
	off, ok := spillOfKind(s, w, KindVar)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return int32(int64(s.u64(off + spVarIndexOff))), nil
}

func EncodeAnonConst(s *Segment, value int64) (Word, error) {
	off, err := s.Alloc(spAnonSize)
	if err != nil {
		return illegalWord, err
	}
	s.setByteAt(off+spillKindOff, byte(KindAnonConst))
	s.setU64(off+spAnonValueOff, uint64(value))
	return makeSpillWord(off), nil
}

func DecodeAnonConst(s *Segment, w Word) (int64, error) {
	off, ok := spillOfKind(s, w, KindAnonConst)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return int64(s.u64(off + spAnonValueOff)), nil
}

// ---- shared helpers ----

func spillOfKind(s *Segment, w Word, k Kind) (int64, bool) {
	if tagOf(w) != tagSpill {
		return 0, false
	}
	off := decodeSpillOffset(w)
	if Kind(s.byteAt(off)) != k {
		return 0, false
	}
	return off, true
}

