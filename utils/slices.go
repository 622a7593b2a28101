// Package utils implements generic helpers shared by the ring and fsm packages.
package utils

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Alias1D returns true if x and y share the same base array.
// Taken from http://golang.org/src/pkg/math/big/nat.go#L340 .
func Alias1D[V any](x, y []V) bool {
	return cap(x) > 0 && cap(y) > 0 && &x[0:cap(x)][cap(x)-1] == &y[0:cap(y)][cap(y)-1]
}

// GetSortedKeys returns the sorted keys of a map.
func GetSortedKeys[K constraints.Ordered, V any](m map[K]V) (keys []K) {
	keys = maps.Keys(m)
	slices.Sort(keys)
	return
}

// GetDistincts returns the sorted list of distinct elements in v.
func GetDistincts[V constraints.Ordered](v []V) (vd []V) {
	vd = slices.Clone(v)
	slices.Sort(vd)
	return slices.Compact(vd)
}

// CloneMap returns a shallow copy of m. A nil map is returned as an empty map.
func CloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	maps.Copy(c, m)
	return c
}
