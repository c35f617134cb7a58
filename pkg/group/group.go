// Package group partitions a sequence of records by a derived key while
// keeping first-seen key order and input order within each key.
package group

import "iter"

// Groups is an insertion-ordered mapping from key to the values that share it.
type Groups[K comparable, V any] struct {
	keys   []K
	values map[K][]V
}

// By groups rows by key(row).
//
//	byTarget := group.By(rules, func(r Rule) string { return r.Target })
func By[K comparable, R any](rows []R, key func(R) K) *Groups[K, R] {
	return ByMapped(rows, key, func(r R) R { return r })
}

// ByMapped groups rows by key(row) and stores value(row) in each group.
func ByMapped[K comparable, R, V any](rows []R, key func(R) K, value func(R) V) *Groups[K, V] {
	g := &Groups[K, V]{values: make(map[K][]V)}
	for _, row := range rows {
		k := key(row)
		if _, seen := g.values[k]; !seen {
			g.keys = append(g.keys, k)
		}
		g.values[k] = append(g.values[k], value(row))
	}
	return g
}

// Keys returns the distinct keys in the order they were first seen.
func (g *Groups[K, V]) Keys() []K {
	out := make([]K, len(g.keys))
	copy(out, g.keys)
	return out
}

// Get returns the values grouped under k, in input order.
func (g *Groups[K, V]) Get(k K) ([]V, bool) {
	v, ok := g.values[k]
	return v, ok
}

// All iterates over the groups in first-seen key order.
func (g *Groups[K, V]) All() iter.Seq2[K, []V] {
	return func(yield func(K, []V) bool) {
		for _, k := range g.keys {
			if !yield(k, g.values[k]) {
				return
			}
		}
	}
}

// Len returns the number of distinct keys.
func (g *Groups[K, V]) Len() int {
	return len(g.keys)
}

// Count returns the number of values across all groups.
func (g *Groups[K, V]) Count() int {
	n := 0
	for _, v := range g.values {
		n += len(v)
	}
	return n
}
