package persistent

import (
	"fmt"
	"iter"

	"github.com/benbjohnson/immutable"
)

// OutOfRangeError reports an update at an index the vector does not hold.
type OutOfRangeError struct {
	Index int
	Len   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range for vector of length %d", e.Index, e.Len)
}

// Vector is an immutable ordered sequence with structural sharing.
//
// The zero value is the empty vector. Vector values are cheap to copy;
// the backing structure is shared between versions.
type Vector[T any] struct {
	list *immutable.List[T]
}

// NewVector returns the empty vector.
func NewVector[T any]() Vector[T] {
	return Vector[T]{}
}

// VectorOf builds a vector holding the given items in order.
func VectorOf[T any](items ...T) Vector[T] {
	if len(items) == 0 {
		return Vector[T]{}
	}
	list := immutable.NewList[T]()
	for _, item := range items {
		list = list.Append(item)
	}
	return Vector[T]{list: list}
}

// Len returns the number of elements.
func (v Vector[T]) Len() int {
	if v.list == nil {
		return 0
	}
	return v.list.Len()
}

// IsEmpty reports whether the vector holds no elements.
func (v Vector[T]) IsEmpty() bool {
	return v.Len() == 0
}

// Get returns the element at index i, or the zero value and false when i
// is out of range.
func (v Vector[T]) Get(i int) (T, bool) {
	if i < 0 || i >= v.Len() {
		var zero T
		return zero, false
	}
	return v.list.Get(i), true
}

// Append returns a new vector with item added at the end. The receiver is
// unchanged.
func (v Vector[T]) Append(item T) Vector[T] {
	if v.list == nil {
		return Vector[T]{list: immutable.NewList[T]().Append(item)}
	}
	return Vector[T]{list: v.list.Append(item)}
}

// Update returns a new vector with the element at index i replaced.
// Updating an empty vector or an index at or past the end fails with an
// *OutOfRangeError carrying the offending index and the current length.
func (v Vector[T]) Update(i int, item T) (Vector[T], error) {
	if i < 0 || i >= v.Len() {
		return Vector[T]{}, &OutOfRangeError{Index: i, Len: v.Len()}
	}
	return Vector[T]{list: v.list.Set(i, item)}, nil
}

// Slice materializes the vector into a new Go slice. This copies every
// element and can be expensive for large vectors.
func (v Vector[T]) Slice() []T {
	if v.list == nil {
		return nil
	}
	out := make([]T, 0, v.list.Len())
	itr := v.list.Iterator()
	for !itr.Done() {
		_, item := itr.Next()
		out = append(out, item)
	}
	return out
}

// All iterates index/element pairs in order.
func (v Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if v.list == nil {
			return
		}
		itr := v.list.Iterator()
		for !itr.Done() {
			i, item := itr.Next()
			if !yield(i, item) {
				return
			}
		}
	}
}

// Values iterates elements in order.
func (v Vector[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range v.All() {
			if !yield(item) {
				return
			}
		}
	}
}
