package sortutil

import "sort"

// StableByKey returns a new slice with items ordered by key ascending.
// Items with equal keys keep their input order. The input is not modified.
func StableByKey[T any](items []T, key func(T) int) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}

// StableByKeyDesc is StableByKey with the order reversed for distinct keys.
func StableByKeyDesc[T any](items []T, key func(T) int) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) > key(out[j]) })
	return out
}
