package wgdb

import "testing"

// TestNullInvariant covers spec §8's Null invariant property: the zero
// word decodes to Null, and encoding Null returns zero.
func TestNullInvariant(t *testing.T) {
	s := openTestSegment(t)
	if !DecodeNull(Word(0)) {
		t.Fatalf("DecodeNull(0) = false, want true")
	}
	if KindOf(s, 0) != KindNull {
		t.Fatalf("KindOf(0) = %v, want Null", KindOf(s, 0))
	}
	if got := EncodeNull(s); got != 0 {
		t.Fatalf("EncodeNull = %v, want 0", got)
	}
}

// TestEncodeDecodeRoundTrip covers spec §8's round-trip property: for
// every kind and a representative value, decode(encode(v)) == v and
// kind_of(encode(v)) == kind.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := openTestSegment(t)

	t.Run("Int inline", func(t *testing.T) {
		w, err := EncodeInt(s, 44)
		if err != nil {
			t.Fatalf("EncodeInt: %v", err)
		}
		if KindOf(s, w) != KindInt {
			t.Fatalf("kind = %v, want Int", KindOf(s, w))
		}
		v, err := DecodeInt(s, w)
		if err != nil || v != 44 {
			t.Fatalf("DecodeInt = %d, %v, want 44, nil", v, err)
		}
	})

	t.Run("Int boxed overflow", func(t *testing.T) {
		big := int64(1) << 62
		w, err := EncodeInt(s, big)
		if err != nil {
			t.Fatalf("EncodeInt: %v", err)
		}
		v, err := DecodeInt(s, w)
		if err != nil || v != big {
			t.Fatalf("DecodeInt = %d, %v, want %d, nil", v, err, big)
		}
	})

	t.Run("Double", func(t *testing.T) {
		w, err := EncodeDouble(s, 3.14159)
		if err != nil {
			t.Fatalf("EncodeDouble: %v", err)
		}
		if KindOf(s, w) != KindDouble {
			t.Fatalf("kind = %v, want Double", KindOf(s, w))
		}
		v, err := DecodeDouble(s, w)
		if err != nil || v != 3.14159 {
			t.Fatalf("DecodeDouble = %v, %v, want 3.14159, nil", v, err)
		}
	})

	t.Run("FixedPoint", func(t *testing.T) {
		w, err := EncodeFixedPoint(s, -12.5)
		if err != nil {
			t.Fatalf("EncodeFixedPoint: %v", err)
		}
		v, err := DecodeFixedPoint(s, w)
		if err != nil || v != -12.5 {
			t.Fatalf("DecodeFixedPoint = %v, %v, want -12.5, nil", v, err)
		}
	})

	t.Run("Char", func(t *testing.T) {
		w, err := EncodeChar(s, 'Q')
		if err != nil {
			t.Fatalf("EncodeChar: %v", err)
		}
		v, err := DecodeChar(s, w)
		if err != nil || v != 'Q' {
			t.Fatalf("DecodeChar = %c, %v, want Q, nil", v, err)
		}
	})

	t.Run("Str short inline", func(t *testing.T) {
		w, err := EncodeStr(s, "short", "")
		if err != nil {
			t.Fatalf("EncodeStr: %v", err)
		}
		if KindOf(s, w) != KindStr {
			t.Fatalf("kind = %v, want Str", KindOf(s, w))
		}
		v, lang, err := DecodeStr(s, w)
		if err != nil || v != "short" || lang != "" {
			t.Fatalf("DecodeStr = %q, %q, %v, want short, \"\", nil", v, lang, err)
		}
	})

	t.Run("Str long spilled with lang", func(t *testing.T) {
		long := "this string is long enough to force a spill object"
		w, err := EncodeStr(s, long, "en")
		if err != nil {
			t.Fatalf("EncodeStr: %v", err)
		}
		v, lang, err := DecodeStr(s, w)
		if err != nil || v != long || lang != "en" {
			t.Fatalf("DecodeStr = %q, %q, %v, want %q, en, nil", v, lang, err, long)
		}
	})

	t.Run("Uri", func(t *testing.T) {
		w, err := EncodeUri(s, "http://example.org/", "thing")
		if err != nil {
			t.Fatalf("EncodeUri: %v", err)
		}
		prefix, local, err := DecodeUri(s, w)
		if err != nil || prefix != "http://example.org/" || local != "thing" {
			t.Fatalf("DecodeUri = %q, %q, %v", prefix, local, err)
		}
	})

	t.Run("XmlLiteral", func(t *testing.T) {
		w, err := EncodeXmlLiteral(s, "<a/>", "xsd:string")
		if err != nil {
			t.Fatalf("EncodeXmlLiteral: %v", err)
		}
		v, xt, err := DecodeXmlLiteral(s, w)
		if err != nil || v != "<a/>" || xt != "xsd:string" {
			t.Fatalf("DecodeXmlLiteral = %q, %q, %v", v, xt, err)
		}
	})

	t.Run("Blob", func(t *testing.T) {
		data := []byte{1, 2, 3, 4, 5}
		w, err := EncodeBlob(s, 7, data)
		if err != nil {
			t.Fatalf("EncodeBlob: %v", err)
		}
		bt, got, err := DecodeBlob(s, w)
		if err != nil || bt != 7 || string(got) != string(data) {
			t.Fatalf("DecodeBlob = %d, %v, %v", bt, got, err)
		}
	})

	t.Run("Date", func(t *testing.T) {
		w, err := EncodeDate(s, 19000)
		if err != nil {
			t.Fatalf("EncodeDate: %v", err)
		}
		v, err := DecodeDate(s, w)
		if err != nil || v != 19000 {
			t.Fatalf("DecodeDate = %d, %v, want 19000, nil", v, err)
		}
	})

	t.Run("Time", func(t *testing.T) {
		w, err := EncodeTime(s, 3600000)
		if err != nil {
			t.Fatalf("EncodeTime: %v", err)
		}
		v, err := DecodeTime(s, w)
		if err != nil || v != 3600000 {
			t.Fatalf("DecodeTime = %d, %v, want 3600000, nil", v, err)
		}
	})

	t.Run("Var", func(t *testing.T) {
		w, err := EncodeVar(s, 3)
		if err != nil {
			t.Fatalf("EncodeVar: %v", err)
		}
		v, err := DecodeVar(s, w)
		if err != nil || v != 3 {
			t.Fatalf("DecodeVar = %d, %v, want 3, nil", v, err)
		}
	})

	t.Run("AnonConst", func(t *testing.T) {
		w, err := EncodeAnonConst(s, 99)
		if err != nil {
			t.Fatalf("EncodeAnonConst: %v", err)
		}
		v, err := DecodeAnonConst(s, w)
		if err != nil || v != 99 {
			t.Fatalf("DecodeAnonConst = %d, %v, want 99, nil", v, err)
		}
	})
}

// TestInterningDeterminism covers spec §8's interning determinism
// property: equal strings with equal lang tags encode to the same raw
// word.
func TestInterningDeterminism(t *testing.T) {
	s := openTestSegment(t)
	long := "this string is long enough to force interning behaviour"
	w1, err := EncodeStr(s, long, "en")
	if err != nil {
		t.Fatalf("EncodeStr: %v", err)
	}
	w2, err := EncodeStr(s, long, "en")
	if err != nil {
		t.Fatalf("EncodeStr: %v", err)
	}
	if w1 != w2 {
		t.Fatalf("EncodeStr(%q) twice produced different words: %v != %v", long, w1, w2)
	}

	w3, err := EncodeStr(s, long, "fr")
	if err != nil {
		t.Fatalf("EncodeStr: %v", err)
	}
	if w1 == w3 {
		t.Fatalf("different lang tags produced the same word")
	}
}
