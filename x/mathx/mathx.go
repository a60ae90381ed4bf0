// Package mathx holds small generic numeric helpers.
package mathx

import "golang.org/x/exp/constraints"

// Between reports whether v lies in the closed range spanned by lo and hi.
// The bounds may be given in either order.
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}
