// JSON-scalar <-> encoded-word conversion for the HTTP front end.
// Deliberately narrow: the query endpoint only ever needs the JSON
// scalar kinds (null, bool, number, string) a template or constraint
// value can arrive as over the wire; records may of course hold
// richer kinds (Uri, Date, Blob, ...) which are decoded for display
// using the best JSON-representable approximation.
package httpapi

import (
	"fmt"

	"github.com/tammet/wgdb"
)

func scalarToWord(seg *wgdb.Segment, v any) (wgdb.Word, error) {
	switch t := v.(type) {
	case nil:
		return wgdb.EncodeNull(seg), nil
	case bool:
		if t {
			return wgdb.EncodeInt(seg, 1)
		}
		return wgdb.EncodeInt(seg, 0)
	case float64:
		if t == float64(int64(t)) {
			return wgdb.EncodeInt(seg, int64(t))
		}
		return wgdb.EncodeDouble(seg, t)
	case string:
		return wgdb.EncodeStr(seg, t, "")
	default:
		return 0, fmt.Errorf("unsupported scalar type %T", v)
	}
}

func wordToScalar(seg *wgdb.Segment, w wgdb.Word) any {
	if wgdb.DecodeNull(w) {
		return nil
	}
	switch wgdb.KindOf(seg, w) {
	case wgdb.KindInt:
		v, err := wgdb.DecodeInt(seg, w)
		if err != nil {
			return nil
		}
		return v
	case wgdb.KindDouble:
		v, err := wgdb.DecodeDouble(seg, w)
		if err != nil {
			return nil
		}
		return v
	case wgdb.KindStr:
		v, _, err := wgdb.DecodeStr(seg, w)
		if err != nil {
			return nil
		}
		return v
	case wgdb.KindChar:
		v, err := wgdb.DecodeChar(seg, w)
		if err != nil {
			return nil
		}
		return string(v)
	case wgdb.KindRecord:
		rec, err := wgdb.DecodeRecord(seg, w)
		if err != nil {
			return nil
		}
		return fmt.Sprintf("record@%d", rec.Off)
	default:
		return fmt.Sprintf("<%s>", wgdb.KindOf(seg, w).String())
	}
}
