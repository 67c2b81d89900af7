package value

import (
	"strconv"

	"github.com/joeycumines/go-utilpkg/jsonenc"
)

// canonicalIntKey formats an integer map key with no leading zeros, no sign
// for non-negative values, and no decimal point or exponent.
func canonicalIntKey(i int64) string {
	return strconv.FormatInt(i, 10)
}

// canonicalFloatKey formats a non-integer float map key using the same
// cutoffs jsonenc.AppendFloat64 uses for JSON number encoding, so that
// structural hashing (hash.go) and re-stringified keys agree byte-for-byte.
//
// NaN and +/-Inf are rejected by the caller before reaching here; they have
// no canonical numeric-key representation.
func canonicalFloatKey(f float64) string {
	return string(jsonenc.AppendFloat64(nil, f))
}
