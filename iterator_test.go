package kstack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(it *KeyIterator[string, int]) []string {
	var out []string
	for it.Next() {
		out = append(out, it.Key())
	}
	return out
}

func TestKeysAreDistinctAndSorted(t *testing.T) {
	s := New[string, int]()
	require.Nil(t, s.Push("delta", 1))
	require.Nil(t, s.Push("alpha", 2))
	require.Nil(t, s.Push("charlie", 3))
	require.Nil(t, s.Push("alpha", 4))

	assert.Equal(t, []string{"alpha", "charlie", "delta"}, collect(s.Keys()))
}

func TestKeysReflectLiveState(t *testing.T) {
	s := New[string, int]()
	require.Nil(t, s.Push("a", 1))
	require.Nil(t, s.Push("b", 2))

	_, err := s.PopKey("a")
	require.Nil(t, err)
	assert.Equal(t, []string{"b"}, collect(s.Keys()))

	// a fresh iterator always sees the keys at call time
	require.Nil(t, s.Push("c", 3))
	assert.Equal(t, []string{"b", "c"}, collect(s.Keys()))
}

func TestIteratorInvalidatedByMutation(t *testing.T) {
	s := New[string, int]()
	require.Nil(t, s.Push("a", 1))
	require.Nil(t, s.Push("b", 2))

	it := s.Keys()
	require.True(t, it.Next())
	require.Nil(t, s.Push("c", 3))

	assert.Panics(t, func() { it.Next() })
}

func TestIteratorSurvivesReadOnlyCalls(t *testing.T) {
	s := New[string, int]()
	require.Nil(t, s.Push("a", 1))

	it := s.Keys()
	_, _, err := s.Front()
	require.Nil(t, err)
	assert.Equal(t, 1, s.Count("a"))

	assert.Equal(t, []string{"a"}, collect(it))
}

func TestRangeKeysStopsEarly(t *testing.T) {
	s := New[string, int]()
	require.Nil(t, s.Push("a", 1))
	require.Nil(t, s.Push("b", 2))
	require.Nil(t, s.Push("c", 3))

	var seen []string
	s.RangeKeys(func(k string) bool {
		seen = append(seen, k)
		return len(seen) < 2
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}
