// Package metrics instruments a KeyedStack with a tally scope. All
// semantics are delegated to the wrapped stack; measurements are reported
// on the way out.
package metrics

import (
	"cmp"

	"github.com/uber-go/tally/v4"

	"github.com/RuiFG/kstack"
)

// Stack wraps a KeyedStack and reports operation counts, rejected
// operations and the live size.
type Stack[K cmp.Ordered, V any] struct {
	inner *kstack.KeyedStack[K, V]

	pushes tally.Counter
	pops   tally.Counter
	clears tally.Counter
	misses tally.Counter
	size   tally.Gauge
}

func Instrument[K cmp.Ordered, V any](inner *kstack.KeyedStack[K, V], scope tally.Scope) *Stack[K, V] {
	return &Stack[K, V]{
		inner:  inner,
		pushes: scope.Counter("pushes"),
		pops:   scope.Counter("pops"),
		clears: scope.Counter("clears"),
		misses: scope.Counter("misses"),
		size:   scope.Gauge("size"),
	}
}

// Inner returns the wrapped stack.
func (s *Stack[K, V]) Inner() *kstack.KeyedStack[K, V] {
	return s.inner
}

func (s *Stack[K, V]) Push(key K, value V) error {
	if err := s.inner.Push(key, value); err != nil {
		return err
	}
	s.pushes.Inc(1)
	s.size.Update(float64(s.inner.Size()))
	return nil
}

func (s *Stack[K, V]) Pop() (K, V, error) {
	k, v, err := s.inner.Pop()
	if err != nil {
		s.misses.Inc(1)
		return k, v, err
	}
	s.pops.Inc(1)
	s.size.Update(float64(s.inner.Size()))
	return k, v, nil
}

func (s *Stack[K, V]) PopKey(key K) (V, error) {
	v, err := s.inner.PopKey(key)
	if err != nil {
		s.misses.Inc(1)
		return v, err
	}
	s.pops.Inc(1)
	s.size.Update(float64(s.inner.Size()))
	return v, nil
}

func (s *Stack[K, V]) Clear() {
	s.inner.Clear()
	s.clears.Inc(1)
	s.size.Update(0)
}

func (s *Stack[K, V]) Size() int {
	return s.inner.Size()
}

func (s *Stack[K, V]) Count(key K) int {
	return s.inner.Count(key)
}

func (s *Stack[K, V]) Front() (K, V, error) {
	k, v, err := s.inner.Front()
	if err != nil {
		s.misses.Inc(1)
	}
	return k, v, err
}

func (s *Stack[K, V]) FrontKey(key K) (V, error) {
	v, err := s.inner.FrontKey(key)
	if err != nil {
		s.misses.Inc(1)
	}
	return v, err
}
