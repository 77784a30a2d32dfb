// Package kstack provides a keyed, copy-on-write LIFO: a stack of
// (key, value) entries that tracks the global push order and an independent
// per-key push order at the same time. Clones share the underlying storage
// until one side mutates, at which point the writer diverges onto its own
// copy.
//
// A KeyedStack is not safe for concurrent use. Handles sharing one block
// must be driven from a single goroutine at a time.
package kstack

import (
	"cmp"

	"github.com/pkg/errors"
)

// KeyedStack is a handle onto a shared storage block. Obtain one with New
// and copy it with Clone; plain pointer assignment hands the same handle
// around without the copy-on-write bookkeeping.
type KeyedStack[K cmp.Ordered, V any] struct {
	data      *block[K, V]
	shareable bool
}

// New returns an empty stack owning a fresh block.
func New[K cmp.Ordered, V any]() *KeyedStack[K, V] {
	b := newBlock[K, V]()
	b.refs = 1
	return &KeyedStack[K, V]{data: b, shareable: true}
}

// Clone is the copy constructor. A shareable source hands out its block and
// bumps the reference count; an unshareable one may have a mutable front
// alias outstanding, so the clone gets its own block immediately and the
// alias keeps the exact block it points into.
func (s *KeyedStack[K, V]) Clone() *KeyedStack[K, V] {
	if s.shareable {
		s.data.refs++
		return &KeyedStack[K, V]{data: s.data, shareable: true}
	}
	nb := s.data.clone()
	nb.refs = 1
	return &KeyedStack[K, V]{data: nb, shareable: true}
}

// Push makes value the new global top and the new top for key. On failure
// of any guarded step the stack is left exactly as it was.
func (s *KeyedStack[K, V]) Push(key K, value V) (err error) {
	t := &txn{}
	defer func() {
		if err != nil {
			t.rollback()
		} else {
			t.commit()
		}
	}()
	if err = s.diverge(t); err != nil {
		return err
	}
	if err = s.data.push(t, key, value); err != nil {
		return err
	}
	s.shareable = true
	return nil
}

// Pop removes and returns the global top.
func (s *KeyedStack[K, V]) Pop() (K, V, error) {
	var (
		zk K
		zv V
	)
	if len(s.data.order) == 0 {
		return zk, zv, ErrEmpty
	}
	t := &txn{}
	if err := s.diverge(t); err != nil {
		t.rollback()
		return zk, zv, err
	}
	k, v := s.data.pop()
	t.commit()
	s.shareable = true
	return k, v, nil
}

// PopKey removes and returns the key's top, wherever it sits in the global
// order.
func (s *KeyedStack[K, V]) PopKey(key K) (V, error) {
	var zv V
	if _, ok := s.data.groups[key]; !ok {
		return zv, errors.WithMessagef(ErrNoSuchKey, "pop key %v", key)
	}
	t := &txn{}
	if err := s.diverge(t); err != nil {
		t.rollback()
		return zv, err
	}
	v := s.data.popKey(key)
	t.commit()
	s.shareable = true
	return v, nil
}

// Clear empties the stack. A shared block is simply released in favor of a
// fresh empty one, so Clear never fails.
func (s *KeyedStack[K, V]) Clear() {
	if s.data.refs > 1 && s.shareable {
		s.data.refs--
		b := newBlock[K, V]()
		b.refs = 1
		s.data = b
	} else {
		s.data.clear()
	}
	s.shareable = true
}

// Size returns the number of live entries.
func (s *KeyedStack[K, V]) Size() int {
	return len(s.data.order)
}

// Count returns the number of live values under key, 0 if the key has none.
func (s *KeyedStack[K, V]) Count(key K) int {
	if g, ok := s.data.groups[key]; ok {
		return len(g.values)
	}
	return 0
}

// Front peeks at the global top.
func (s *KeyedStack[K, V]) Front() (K, V, error) {
	var (
		zk K
		zv V
	)
	if len(s.data.order) == 0 {
		return zk, zv, ErrEmpty
	}
	ref := s.data.top()
	return ref.key, s.data.groups[ref.key].values[ref.idx], nil
}

// FrontKey peeks at the key's top.
func (s *KeyedStack[K, V]) FrontKey(key K) (V, error) {
	var zv V
	g, ok := s.data.groups[key]
	if !ok {
		return zv, errors.WithMessagef(ErrNoSuchKey, "front key %v", key)
	}
	return g.values[len(g.values)-1], nil
}

// FrontRef returns the global top with a mutable alias to its value. The
// handle diverges from any shared block first and is marked unshareable, so
// the next Clone deep copies instead of sharing out from under the alias.
// The alias stays valid until this handle mutates the stack again.
func (s *KeyedStack[K, V]) FrontRef() (K, *V, error) {
	var zk K
	if len(s.data.order) == 0 {
		return zk, nil, ErrEmpty
	}
	t := &txn{}
	if err := s.diverge(t); err != nil {
		t.rollback()
		return zk, nil, err
	}
	t.commit()
	s.shareable = false
	ref := s.data.top()
	return ref.key, &s.data.groups[ref.key].values[ref.idx], nil
}

// FrontKeyRef returns a mutable alias to the key's top value, with the same
// divergence and shareability contract as FrontRef.
func (s *KeyedStack[K, V]) FrontKeyRef(key K) (*V, error) {
	if _, ok := s.data.groups[key]; !ok {
		return nil, errors.WithMessagef(ErrNoSuchKey, "front key %v", key)
	}
	t := &txn{}
	if err := s.diverge(t); err != nil {
		t.rollback()
		return nil, err
	}
	t.commit()
	s.shareable = false
	g := s.data.groups[key]
	return &g.values[len(g.values)-1], nil
}

// Range visits every live entry oldest-pushed first, stopping early when fn
// returns false.
func (s *KeyedStack[K, V]) Range(fn func(key K, value V) bool) {
	for _, ref := range s.data.order {
		if !fn(ref.key, s.data.groups[ref.key].values[ref.idx]) {
			return
		}
	}
}

// diverge runs the clone-if-shared check before a write. The predicate is
// "any handle other than this one still references the block"; the txn keeps
// no reference of its own, so refs > 1 is exact. The registered guard
// restores the previous handle and flag if a later step fails.
func (s *KeyedStack[K, V]) diverge(t *txn) error {
	if s.data.refs <= 1 || !s.shareable {
		return nil
	}
	if err := failStep(stageClone); err != nil {
		return err
	}
	old, oldShareable := s.data, s.shareable
	nb := old.clone()
	nb.refs = 1
	old.refs--
	s.data = nb
	t.onRollback(func() {
		old.refs++
		s.data = old
		s.shareable = oldShareable
	})
	return nil
}
