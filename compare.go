// Total order over encoded words (spec §4.2, §4.6): numeric kinds
// compare by value across Int/Double/FixedPoint, every other kind
// compares within itself, and kinds never interleave except inside the
// numeric family. Used by query constraint evaluation and by the
// ordered index body (ttree.go).
package wgdb

import (
	"bytes"
	"math/big"
	"strings"
)

// kindRank groups kinds into the total order's coarse buckets. Int,
// Double and FixedPoint share a bucket because they compare against
// each other by numeric value; every other kind only ever compares
// against its own kind.
func kindRank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindInt, KindDouble, KindFixedPoint:
		return 1
	case KindChar:
		return 2
	case KindStr:
		return 3
	case KindUri:
		return 4
	case KindXmlLiteral:
		return 5
	case KindBlob:
		return 6
	case KindDate:
		return 7
	case KindTime:
		return 8
	case KindRecord:
		return 9
	case KindVar:
		return 10
	case KindAnonConst:
		// Not placed by the documented order (Null < Int/Double/
		// FixedPoint < Char < Str < Uri < XmlLiteral < Blob < Date <
		// Time < Record < Var); ranked just after Var since both are
		// query-internal markers rather than stored data values.
		return 11
	default:
		return 12
	}
}

// Compare returns -1, 0 or 1 for a relative to b under the documented
// total order. Values from different non-numeric kinds are ordered by
// kind rank, never by any cross-kind value comparison.
func Compare(s *Segment, a, b Word) (int, error) {
	ka, kb := kindOf(s, a), kindOf(s, b)
	ra, rb := kindRank(ka), kindRank(kb)

	if ra == 1 && rb == 1 {
		// Int/Int and Int/FixedPoint pairs compare exactly via integer
		// arithmetic: routing them through float64 loses precision past
		// 2^53 and can make two distinct int64 values compare equal.
		// Only a pair actually involving Double needs the float path.
		if ka != KindDouble && kb != KindDouble {
			na, err := scaledNumericValue(s, a, ka)
			if err != nil {
				return 0, err
			}
			nb, err := scaledNumericValue(s, b, kb)
			if err != nil {
				return 0, err
			}
			return na.Cmp(nb), nil
		}
		va, err := numericValue(s, a, ka)
		if err != nil {
			return 0, err
		}
		vb, err := numericValue(s, b, kb)
		if err != nil {
			return 0, err
		}
		return cmpFloat(va, vb), nil
	}
	if ra != rb {
		return cmpInt(int64(ra), int64(rb)), nil
	}

	switch ka {
	case KindNull:
		return 0, nil
	case KindChar:
		ca, err := DecodeChar(s, a)
		if err != nil {
			return 0, err
		}
		cb, err := DecodeChar(s, b)
		if err != nil {
			return 0, err
		}
		return cmpInt(int64(ca), int64(cb)), nil
	case KindStr:
		sa, _, err := DecodeStr(s, a)
		if err != nil {
			return 0, err
		}
		sb, _, err := DecodeStr(s, b)
		if err != nil {
			return 0, err
		}
		return strings.Compare(sa, sb), nil
	case KindUri:
		pa, la, err := DecodeUri(s, a)
		if err != nil {
			return 0, err
		}
		pb, lb, err := DecodeUri(s, b)
		if err != nil {
			return 0, err
		}
		if c := strings.Compare(pa, pb); c != 0 {
			return c, nil
		}
		return strings.Compare(la, lb), nil
	case KindXmlLiteral:
		va, _, err := DecodeXmlLiteral(s, a)
		if err != nil {
			return 0, err
		}
		vb, _, err := DecodeXmlLiteral(s, b)
		if err != nil {
			return 0, err
		}
		return strings.Compare(va, vb), nil
	case KindBlob:
		ta, da, err := DecodeBlob(s, a)
		if err != nil {
			return 0, err
		}
		tb, db, err := DecodeBlob(s, b)
		if err != nil {
			return 0, err
		}
		if ta != tb {
			return cmpInt(int64(ta), int64(tb)), nil
		}
		return bytes.Compare(da, db), nil
	case KindDate:
		da, err := DecodeDate(s, a)
		if err != nil {
			return 0, err
		}
		db, err := DecodeDate(s, b)
		if err != nil {
			return 0, err
		}
		return cmpInt(int64(da), int64(db)), nil
	case KindTime:
		ta, err := DecodeTime(s, a)
		if err != nil {
			return 0, err
		}
		tb, err := DecodeTime(s, b)
		if err != nil {
			return 0, err
		}
		return cmpInt(int64(ta), int64(tb)), nil
	case KindRecord:
		oa, err := decodeRecordOffset(a)
		if err != nil {
			return 0, err
		}
		ob, err := decodeRecordOffset(b)
		if err != nil {
			return 0, err
		}
		return cmpInt(oa, ob), nil
	case KindVar:
		ia, err := DecodeVar(s, a)
		if err != nil {
			return 0, err
		}
		ib, err := DecodeVar(s, b)
		if err != nil {
			return 0, err
		}
		return cmpInt(int64(ia), int64(ib)), nil
	case KindAnonConst:
		ia, err := DecodeAnonConst(s, a)
		if err != nil {
			return 0, err
		}
		ib, err := DecodeAnonConst(s, b)
		if err != nil {
			return 0, err
		}
		return cmpInt(ia, ib), nil
	default:
		return 0, ErrTypeMismatch
	}
}

// Equal reports whether a and b are equal under the documented order:
// true within a kind (or across the numeric family) when Compare
// returns 0, false across every other kind pairing.
func Equal(s *Segment, a, b Word) (bool, error) {
	c, err := Compare(s, a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

// scaledNumericValue returns an Int or FixedPoint value as an exact
// big.Int at FixedPoint's decimal scale, so Int/Int and Int/FixedPoint
// comparisons never lose precision the way a float64 round-trip would.
func scaledNumericValue(s *Segment, w Word, k Kind) (*big.Int, error) {
	switch k {
	case KindInt:
		v, err := DecodeInt(s, w)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Mul(big.NewInt(v), big.NewInt(fixedPointScale)), nil
	case KindFixedPoint:
		scaled, err := decodeFixedPointScaled(s, w)
		if err != nil {
			return nil, err
		}
		return big.NewInt(scaled), nil
	default:
		return nil, ErrTypeMismatch
	}
}

func numericValue(s *Segment, w Word, k Kind) (float64, error) {
	switch k {
	case KindInt:
		v, err := DecodeInt(s, w)
		return float64(v), err
	case KindDouble:
		return DecodeDouble(s, w)
	case KindFixedPoint:
		return DecodeFixedPoint(s, w)
	default:
		return 0, ErrTypeMismatch
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
