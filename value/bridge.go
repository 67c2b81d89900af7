package value

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/dop251/goja"
)

// DefaultMaxDepth is the default recursion limit applied by ToNeutral when
// no Option overrides it. Spec requires implementations choose >= 32.
const DefaultMaxDepth = 64

// Option configures a single ToNeutral call.
type Option func(*bridgeConfig)

type bridgeConfig struct {
	maxDepth int
}

// WithMaxDepth overrides the recursion limit used by ToNeutral.
func WithMaxDepth(n int) Option {
	return func(c *bridgeConfig) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// ToNeutral recursively converts a script-side (goja) value into a
// host-neutral Value, per spec.md's Value Bridge contract: scalars,
// sequences, and string-keyed tables are deep-copied; callables, userdata,
// and symbols are rejected with ErrUnsupportedKind; cycles are rejected
// with ErrCyclic; recursion past the configured depth returns
// ErrDepthExceeded.
func ToNeutral(v goja.Value, opts ...Option) (Value, error) {
	cfg := bridgeConfig{maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(&cfg)
	}
	return toNeutral(v, 0, cfg.maxDepth, make(map[*goja.Object]struct{}))
}

func toNeutral(v goja.Value, depth, maxDepth int, seen map[*goja.Object]struct{}) (Value, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return Null(), nil
	}

	if obj, ok := v.(*goja.Object); ok {
		return toNeutralObject(obj, depth, maxDepth, seen)
	}

	switch exported := v.Export().(type) {
	case bool:
		return Bool(exported), nil
	case int64:
		return Integer(exported), nil
	case float64:
		return Float(exported), nil
	case string:
		return String(exported), nil
	case *big.Int:
		if !exported.IsInt64() {
			return Value{}, fmt.Errorf("%w: big.Int overflows int64", ErrUnsupportedKind)
		}
		return Integer(exported.Int64()), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedKind, exported)
	}
}

func toNeutralObject(obj *goja.Object, depth, maxDepth int, seen map[*goja.Object]struct{}) (Value, error) {
	if depth >= maxDepth {
		return Value{}, ErrDepthExceeded
	}
	if _, ok := seen[obj]; ok {
		return Value{}, ErrCyclic
	}

	switch class := obj.ClassName(); class {
	case "Function", "GeneratorFunction", "AsyncFunction", "Symbol", "Promise":
		return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, class)
	}

	// Typed binary data: exported directly, no recursion required.
	switch exported := obj.Export().(type) {
	case []byte:
		return Bytes(exported), nil
	case goja.ArrayBuffer:
		return Bytes(exported.Bytes()), nil
	}

	seen[obj] = struct{}{}
	defer delete(seen, obj)

	if obj.ClassName() == "Array" {
		return toNeutralArray(obj, depth, maxDepth, seen)
	}

	return toNeutralMap(obj, depth, maxDepth, seen)
}

func toNeutralArray(obj *goja.Object, depth, maxDepth int, seen map[*goja.Object]struct{}) (Value, error) {
	length := int(obj.Get("length").ToInteger())
	elems := make([]Value, 0, length)
	for i := 0; i < length; i++ {
		elem, err := toNeutral(obj.Get(strconv.Itoa(i)), depth+1, maxDepth, seen)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, elem)
	}
	return Value{kind: KindArray, arr: elems}, nil
}

func toNeutralMap(obj *goja.Object, depth, maxDepth int, seen map[*goja.Object]struct{}) (Value, error) {
	keys := obj.Keys()
	entries := make([]MapEntry, 0, len(keys))
	for _, k := range keys {
		fv, err := toNeutral(obj.Get(k), depth+1, maxDepth, seen)
		if err != nil {
			return Value{}, err
		}
		key, err := canonicalizeObjectKey(k)
		if err != nil {
			return Value{}, err
		}
		entries = append(entries, MapEntry{Key: key, Value: fv})
	}
	return Value{kind: KindMap, m: entries}, nil
}

// canonicalizeObjectKey re-expresses k through canonicalNumericKey whenever
// it is already a numeric-looking property key, so a table built from
// script-side numeric property access (`obj[5] = ...`, `obj[1.5] = ...`)
// stringifies its keys the same way canonicalNumericKey would for a
// Go-side numeric Value (spec.md §4.1, SPEC_FULL.md §D.1). Keys that merely
// resemble a number without being one in canonical numeric-string form
// (e.g. "007", "+5", "0x10") are left untouched: those are not the
// canonical ToString of any number goja would have produced from a
// numeric property access, so treating them as numeric would corrupt a
// literal string key.
func canonicalizeObjectKey(k string) (string, error) {
	if i, ok := canonicalIntSyntax(k); ok {
		return canonicalNumericKey(Integer(i))
	}
	if f, ok := canonicalFloatSyntax(k); ok {
		return canonicalNumericKey(Float(f))
	}
	return k, nil
}

// canonicalIntSyntax reports whether k is already the canonical base-10
// string form of an int64 (no leading zeros, no leading '+', no '-0').
func canonicalIntSyntax(k string) (int64, bool) {
	i, err := strconv.ParseInt(k, 10, 64)
	if err != nil || strconv.FormatInt(i, 10) != k {
		return 0, false
	}
	return i, true
}

// canonicalFloatSyntax reports whether k parses as a float64 using only
// the character set JS/JSON numeric syntax allows and is already the
// canonical key form of that float (so "007" or "+5" are rejected),
// rejecting forms strconv.ParseFloat otherwise accepts that numeric
// property access never produces, such as hex floats, underscore digit
// separators, or the "Inf"/"NaN" words.
func canonicalFloatSyntax(k string) (float64, bool) {
	for _, r := range k {
		switch {
		case r >= '0' && r <= '9':
		case r == '-' || r == '+' || r == '.' || r == 'e' || r == 'E':
		default:
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(k, 64)
	if err != nil || canonicalFloatKey(f) != k {
		return 0, false
	}
	return f, true
}

// FromNeutral builds a fresh script-side value from a neutral Value. Per
// spec, the conversion is lossy in one direction: numeric-string map keys
// produced by ToNeutral's canonicalization are not un-stringified back into
// numeric keys on the way back in (this is intentional and documented).
func FromNeutral(rt *goja.Runtime, v Value) goja.Value {
	switch v.Kind() {
	case KindNull:
		return goja.Null()
	case KindBool:
		return rt.ToValue(v.AsBool())
	case KindInteger:
		return rt.ToValue(v.AsInteger())
	case KindFloat:
		return rt.ToValue(v.AsFloat())
	case KindString:
		return rt.ToValue(v.AsString())
	case KindBytes:
		return newUint8Array(rt, v.AsBytes())
	case KindArray:
		elems := v.AsArray()
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			out[i] = fromNeutralNative(rt, e)
		}
		return rt.ToValue(out)
	case KindMap:
		entries := v.AsMap()
		obj := rt.NewObject()
		for _, e := range entries {
			_ = obj.Set(e.Key, fromNeutralNative(rt, e.Value))
		}
		return obj
	default:
		return goja.Undefined()
	}
}

// fromNeutralNative mirrors FromNeutral but returns values suitable for
// embedding inside a []interface{}/map construction passed to rt.ToValue,
// avoiding one layer of redundant wrapping for nested containers.
func fromNeutralNative(rt *goja.Runtime, v Value) interface{} {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindBool:
		return v.AsBool()
	case KindInteger:
		return v.AsInteger()
	case KindFloat:
		return v.AsFloat()
	case KindString:
		return v.AsString()
	case KindBytes:
		return newUint8Array(rt, v.AsBytes())
	case KindArray:
		elems := v.AsArray()
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			out[i] = fromNeutralNative(rt, e)
		}
		return out
	case KindMap:
		entries := v.AsMap()
		obj := rt.NewObject()
		for _, e := range entries {
			_ = obj.Set(e.Key, fromNeutralNative(rt, e.Value))
		}
		return obj
	default:
		return nil
	}
}

// newUint8Array wraps data as a JS Uint8Array backed by a fresh ArrayBuffer,
// following the construction idiom used to bridge binary payloads into
// goja elsewhere in this codebase: wrap via NewArrayBuffer, then invoke the
// Uint8Array constructor, falling back to the raw ArrayBuffer if the global
// isn't available (e.g. a runtime without typed-array globals enabled).
func newUint8Array(rt *goja.Runtime, data []byte) goja.Value {
	cp := make([]byte, len(data))
	copy(cp, data)
	ab := rt.NewArrayBuffer(cp)

	ctor := rt.Get("Uint8Array")
	if ctor == nil || goja.IsUndefined(ctor) {
		return rt.ToValue(ab)
	}
	result, err := rt.New(ctor, rt.ToValue(ab))
	if err != nil {
		return rt.ToValue(ab)
	}
	return result
}

// canonicalNumericKey renders v as the canonical numeric-string map key
// spec.md §4.1 requires. toNeutralMap calls it (via canonicalizeObjectKey)
// to re-canonicalize numeric-looking script object keys; it is also the
// right entry point for any future Go-side code that needs to build a Map
// key from a numeric Value the same way ToNeutral would.
func canonicalNumericKey(v Value) (string, error) {
	switch v.Kind() {
	case KindInteger:
		return canonicalIntKey(v.AsInteger()), nil
	case KindFloat:
		f := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%w: non-finite numeric key", ErrUnsupportedKind)
		}
		return canonicalFloatKey(f), nil
	default:
		return "", fmt.Errorf("%w: key is not numeric", ErrUnsupportedKind)
	}
}

// CanonicalNumericKey is the exported form of canonicalNumericKey.
func CanonicalNumericKey(v Value) (string, error) { return canonicalNumericKey(v) }
