package value

import (
	"sort"
	"strconv"

	"github.com/joeycumines/go-utilpkg/jsonenc"
)

// Equal reports whether a and b are structurally equal: same kind, same
// scalar payload, same Array elements in order, same Map entries as sets
// (Map order is not significant per spec).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInteger:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindBytes:
		return string(a.by) == string(b.by)
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for _, ae := range a.m {
			bv, ok := b.Get(ae.Key)
			if !ok || !Equal(ae.Value, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Digest returns a canonical byte-string encoding of v suitable for use as a
// structural hash/comparison key: equal values (per Equal) always produce
// identical digests, and Map entries are sorted by key first so digest
// output is independent of construction order.
//
// This reuses jsonenc's canonical string/number encoding so digests agree
// with the map-key canonicalization used elsewhere in this package.
func Digest(v Value) []byte {
	return appendDigest(nil, v)
}

func appendDigest(dst []byte, v Value) []byte {
	switch v.kind {
	case KindNull:
		return append(dst, 'n')
	case KindBool:
		if v.b {
			return append(dst, 'T')
		}
		return append(dst, 'F')
	case KindInteger:
		dst = append(dst, 'i')
		return strconv.AppendInt(dst, v.i, 10)
	case KindFloat:
		dst = append(dst, 'f')
		return jsonenc.AppendFloat64(dst, v.f)
	case KindString:
		dst = append(dst, 's')
		return jsonenc.AppendString(dst, v.s)
	case KindBytes:
		dst = append(dst, 'b')
		return jsonenc.AppendString(dst, string(v.by))
	case KindArray:
		dst = append(dst, '[')
		for i, e := range v.arr {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendDigest(dst, e)
		}
		return append(dst, ']')
	case KindMap:
		entries := make([]MapEntry, len(v.m))
		copy(entries, v.m)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		dst = append(dst, '{')
		for i, e := range entries {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = jsonenc.AppendString(dst, e.Key)
			dst = append(dst, ':')
			dst = appendDigest(dst, e.Value)
		}
		return append(dst, '}')
	default:
		return append(dst, '?')
	}
}
