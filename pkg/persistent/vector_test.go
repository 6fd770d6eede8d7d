package persistent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector_ZeroValueIsEmpty(t *testing.T) {
	var v Vector[int]
	assert.True(t, v.IsEmpty())
	assert.Equal(t, 0, v.Len())
	assert.Nil(t, v.Slice())

	built := NewVector[int]()
	assert.Equal(t, v.Len(), built.Len())
	assert.Equal(t, v.Slice(), built.Slice())
}

func TestVector_AppendDoesNotMutateReceiver(t *testing.T) {
	v1 := NewVector[string]()
	v2 := v1.Append("hello")

	assert.Equal(t, 0, v1.Len())
	assert.Equal(t, 1, v2.Len())

	v3 := v2.Append("world")
	assert.Equal(t, 1, v2.Len())
	assert.Equal(t, []string{"hello", "world"}, v3.Slice())

	got, ok := v3.Get(0)
	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestVector_Update(t *testing.T) {
	v := VectorOf(1, 2, 3)

	updated, err := v.Update(1, 42)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 42, 3}, updated.Slice())
	// Receiver unchanged.
	assert.Equal(t, []int{1, 2, 3}, v.Slice())
}

func TestVector_UpdateOutOfRange(t *testing.T) {
	tests := []struct {
		name      string
		vector    Vector[int]
		index     int
		wantIndex int
		wantLen   int
	}{
		{name: "empty vector", vector: NewVector[int](), index: 0, wantIndex: 0, wantLen: 0},
		{name: "index past end", vector: VectorOf(1, 2), index: 2, wantIndex: 2, wantLen: 2},
		{name: "negative index", vector: VectorOf(1, 2), index: -1, wantIndex: -1, wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.vector.Update(tt.index, 99)
			require.Error(t, err)

			var oor *OutOfRangeError
			require.True(t, errors.As(err, &oor))
			assert.Equal(t, tt.wantIndex, oor.Index)
			assert.Equal(t, tt.wantLen, oor.Len)
		})
	}
}

func TestVector_Get(t *testing.T) {
	v := VectorOf("a", "b", "c")

	got, ok := v.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "b", got)

	_, ok = v.Get(10)
	assert.False(t, ok)
	_, ok = v.Get(-1)
	assert.False(t, ok)
}

func TestVector_IterationOrder(t *testing.T) {
	v := VectorOf(10, 20, 30)

	var indices []int
	var items []int
	for i, item := range v.All() {
		indices = append(indices, i)
		items = append(items, item)
	}
	assert.Equal(t, []int{0, 1, 2}, indices)
	assert.Equal(t, []int{10, 20, 30}, items)

	var values []int
	for item := range v.Values() {
		values = append(values, item)
	}
	assert.Equal(t, []int{10, 20, 30}, values)
}

func TestVector_StructuralSharingPreservesOldVersion(t *testing.T) {
	v := NewVector[int]()
	for i := 0; i < 100; i++ {
		v = v.Append(i)
	}

	updated, err := v.Update(50, -1)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		old, _ := v.Get(i)
		assert.Equal(t, i, old)
		if i != 50 {
			cur, _ := updated.Get(i)
			assert.Equal(t, i, cur)
		}
	}
	got, _ := updated.Get(50)
	assert.Equal(t, -1, got)
}
