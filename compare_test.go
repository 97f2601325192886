package wgdb

import "testing"

func TestCompareNumericFamily(t *testing.T) {
	s := openTestSegment(t)

	i, _ := EncodeInt(s, 5)
	d, _ := EncodeDouble(s, 5.0)
	f, _ := EncodeFixedPoint(s, 5.0)

	for _, pair := range [][2]Word{{i, d}, {d, f}, {i, f}} {
		c, err := Compare(s, pair[0], pair[1])
		if err != nil {
			t.Fatalf("Compare: %v", err)
		}
		if c != 0 {
			t.Fatalf("Compare(%v, %v) = %d, want 0 (numeric family equal)", pair[0], pair[1], c)
		}
	}

	big, _ := EncodeInt(s, 100)
	c, err := Compare(s, i, big)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c != -1 {
		t.Fatalf("Compare(5, 100) = %d, want -1", c)
	}
}

func TestCompareCrossKindRank(t *testing.T) {
	s := openTestSegment(t)

	n := EncodeNull(s)
	i, _ := EncodeInt(s, 0)
	c, _ := EncodeChar(s, 'a')
	str, _ := EncodeStr(s, "z", "")

	order := []Word{n, i, c, str}
	for a := 0; a < len(order); a++ {
		for b := a + 1; b < len(order); b++ {
			cmp, err := Compare(s, order[a], order[b])
			if err != nil {
				t.Fatalf("Compare: %v", err)
			}
			if cmp != -1 {
				t.Fatalf("Compare(rank %d, rank %d) = %d, want -1 (kind rank ordering)", a, b, cmp)
			}
		}
	}
}

func TestCompareWithinKind(t *testing.T) {
	s := openTestSegment(t)

	s1, _ := EncodeStr(s, "apple", "")
	s2, _ := EncodeStr(s, "banana", "")
	c, err := Compare(s, s1, s2)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c != -1 {
		t.Fatalf("Compare(apple, banana) = %d, want -1", c)
	}

	eq, err := Equal(s, s1, s1)
	if err != nil {
		t.Fatalf("Equal: %v", err)
	}
	if !eq {
		t.Fatalf("Equal(apple, apple) = false, want true")
	}
}

// TestCompareIntPrecisionBeyondFloat64Mantissa covers large int64
// values whose magnitude exceeds float64's 53-bit mantissa: comparing
// them must not round both to the same float and report them equal.
func TestCompareIntPrecisionBeyondFloat64Mantissa(t *testing.T) {
	s := openTestSegment(t)

	a, _ := EncodeInt(s, 9007199254740992)
	b, _ := EncodeInt(s, 9007199254740993)

	eq, err := Equal(s, a, b)
	if err != nil {
		t.Fatalf("Equal: %v", err)
	}
	if eq {
		t.Fatalf("Equal(9007199254740992, 9007199254740993) = true, want false (distinct int64 values)")
	}
	c, err := Compare(s, a, b)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c != -1 {
		t.Fatalf("Compare(9007199254740992, 9007199254740993) = %d, want -1", c)
	}
}

// TestCompareIntFixedPointExact covers an Int compared against a
// FixedPoint holding the same integral value, without routing through
// float64.
func TestCompareIntFixedPointExact(t *testing.T) {
	s := openTestSegment(t)

	i, _ := EncodeInt(s, 42)
	f, _ := EncodeFixedPoint(s, 42.0)
	eq, err := Equal(s, i, f)
	if err != nil {
		t.Fatalf("Equal: %v", err)
	}
	if !eq {
		t.Fatalf("Equal(Int(42), FixedPoint(42.0)) = false, want true")
	}

	f2, _ := EncodeFixedPoint(s, 42.5)
	c, err := Compare(s, i, f2)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c != -1 {
		t.Fatalf("Compare(Int(42), FixedPoint(42.5)) = %d, want -1", c)
	}
}

func TestCompareAnonConstAfterVar(t *testing.T) {
	s := openTestSegment(t)

	v, _ := EncodeVar(s, 0)
	a, _ := EncodeAnonConst(s, 0)
	c, err := Compare(s, v, a)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c != -1 {
		t.Fatalf("Compare(Var, AnonConst) = %d, want -1 (AnonConst ranked after Var)", c)
	}
}
