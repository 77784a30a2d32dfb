package kstack

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopLIFO(t *testing.T) {
	s := New[string, int]()
	for i := 0; i < 10; i++ {
		require.Nil(t, s.Push("k", i))
	}
	assert.Equal(t, 10, s.Size())
	for i := 9; i >= 0; i-- {
		k, v, err := s.Pop()
		require.Nil(t, err)
		assert.Equal(t, "k", k)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, s.Size())
}

func TestScenario(t *testing.T) {
	s := New[string, int]()
	require.Nil(t, s.Push("A", 1))
	require.Nil(t, s.Push("B", 2))
	require.Nil(t, s.Push("A", 3))

	assert.Equal(t, 3, s.Size())
	k, v, err := s.Front()
	require.Nil(t, err)
	assert.Equal(t, "A", k)
	assert.Equal(t, 3, v)
	va, err := s.FrontKey("A")
	require.Nil(t, err)
	assert.Equal(t, 3, va)
	vb, err := s.FrontKey("B")
	require.Nil(t, err)
	assert.Equal(t, 2, vb)
	assert.Equal(t, 2, s.Count("A"))

	k, v, err = s.Pop()
	require.Nil(t, err)
	assert.Equal(t, "A", k)
	assert.Equal(t, 3, v)
	k, v, err = s.Front()
	require.Nil(t, err)
	assert.Equal(t, "B", k)
	assert.Equal(t, 2, v)

	v, err = s.PopKey("A")
	require.Nil(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 0, s.Count("A"))

	var keys []string
	s.RangeKeys(func(key string) bool {
		keys = append(keys, key)
		return true
	})
	assert.Equal(t, []string{"B"}, keys)
}

func TestPopKeyReversePerKeyOrder(t *testing.T) {
	s := New[string, int]()
	require.Nil(t, s.Push("a", 1))
	require.Nil(t, s.Push("b", 10))
	require.Nil(t, s.Push("a", 2))
	require.Nil(t, s.Push("b", 20))
	require.Nil(t, s.Push("a", 3))

	for _, want := range []int{3, 2, 1} {
		v, err := s.PopKey("a")
		require.Nil(t, err)
		assert.Equal(t, want, v)
	}
	assert.Equal(t, 0, s.Count("a"))
	assert.Equal(t, 2, s.Size())

	// the global order is untouched for the remaining key
	k, v, err := s.Pop()
	require.Nil(t, err)
	assert.Equal(t, "b", k)
	assert.Equal(t, 20, v)
	k, v, err = s.Pop()
	require.Nil(t, err)
	assert.Equal(t, "b", k)
	assert.Equal(t, 10, v)
}

func TestPopKeyMiddleOfGlobalOrder(t *testing.T) {
	s := New[string, int]()
	require.Nil(t, s.Push("a", 1))
	require.Nil(t, s.Push("b", 2))
	require.Nil(t, s.Push("c", 3))

	v, err := s.PopKey("b")
	require.Nil(t, err)
	assert.Equal(t, 2, v)

	var got []int
	s.Range(func(_ string, value int) bool {
		got = append(got, value)
		return true
	})
	assert.Equal(t, []int{1, 3}, got)
}

func TestCount(t *testing.T) {
	s := New[string, int]()
	assert.Equal(t, 0, s.Count("missing"))
	for i := 0; i < 5; i++ {
		require.Nil(t, s.Push("k", i))
	}
	for i := 0; i < 2; i++ {
		_, err := s.PopKey("k")
		require.Nil(t, err)
	}
	assert.Equal(t, 3, s.Count("k"))
}

func TestEmptyAndMissingKeyErrors(t *testing.T) {
	s := New[string, int]()

	_, _, err := s.Pop()
	assert.True(t, errors.Is(err, ErrEmpty))
	_, _, err = s.Front()
	assert.True(t, errors.Is(err, ErrEmpty))
	_, _, err = s.FrontRef()
	assert.True(t, errors.Is(err, ErrEmpty))

	require.Nil(t, s.Push("a", 1))
	_, err = s.PopKey("b")
	assert.True(t, errors.Is(err, ErrNoSuchKey))
	_, err = s.FrontKey("b")
	assert.True(t, errors.Is(err, ErrNoSuchKey))
	_, err = s.FrontKeyRef("b")
	assert.True(t, errors.Is(err, ErrNoSuchKey))

	// failed operations leave the structure unchanged
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, 1, s.Count("a"))

	// a key becomes missing again once exhausted
	_, err = s.PopKey("a")
	require.Nil(t, err)
	_, err = s.PopKey("a")
	assert.True(t, errors.Is(err, ErrNoSuchKey))
}

func TestClear(t *testing.T) {
	s := New[string, int]()
	require.Nil(t, s.Push("a", 1))
	require.Nil(t, s.Push("b", 2))
	s.Clear()
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, 0, s.Count("a"))
	_, _, err := s.Pop()
	assert.True(t, errors.Is(err, ErrEmpty))

	// clearing an already empty stack stays a no-op
	s.Clear()
	assert.Equal(t, 0, s.Size())
}

func TestRangePushOrder(t *testing.T) {
	s := New[string, int]()
	require.Nil(t, s.Push("a", 1))
	require.Nil(t, s.Push("b", 2))
	require.Nil(t, s.Push("a", 3))

	var gotKeys []string
	var gotValues []int
	s.Range(func(key string, value int) bool {
		gotKeys = append(gotKeys, key)
		gotValues = append(gotValues, value)
		return true
	})
	assert.Equal(t, []string{"a", "b", "a"}, gotKeys)
	assert.Equal(t, []int{1, 2, 3}, gotValues)
}
