package kstack

import "cmp"

// KeyIterator walks the distinct live keys in key order. It is a non-owning
// forward cursor over the block it was created against: any structural
// mutation through a handle bound to that block invalidates it, and further
// use panics.
type KeyIterator[K cmp.Ordered, V any] struct {
	b       *block[K, V]
	version uint64
	i       int
}

// Keys returns an iterator over the stack's distinct keys as they are at
// call time.
func (s *KeyedStack[K, V]) Keys() *KeyIterator[K, V] {
	return &KeyIterator[K, V]{b: s.data, version: s.data.version, i: -1}
}

// Next advances the iterator and reports whether a key is available.
func (it *KeyIterator[K, V]) Next() bool {
	it.check()
	it.i++
	return it.i < len(it.b.keys)
}

// Key returns the key at the current position.
func (it *KeyIterator[K, V]) Key() K {
	it.check()
	return it.b.keys[it.i]
}

func (it *KeyIterator[K, V]) check() {
	if it.b.version != it.version {
		panic("kstack: key iterator used after mutation")
	}
}

// RangeKeys visits the distinct live keys in key order, stopping early when
// fn returns false.
func (s *KeyedStack[K, V]) RangeKeys(fn func(key K) bool) {
	for _, k := range s.data.keys {
		if !fn(k) {
			return
		}
	}
}
