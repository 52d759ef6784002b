// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package ring provides a fixed-capacity circular buffer addressed by logical
// index (0 is the oldest element) independently of its physical layout.
package ring

import "iter"

// Buffer is a generic fixed-capacity circular buffer. It is not safe for
// concurrent use.
type Buffer[T any] struct {
	items []T
	head  int // physical slot of the oldest element
	size  int
}

// New creates a buffer holding at most capacity elements. A non-positive
// capacity is raised to one.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Len returns the number of elements in the buffer.
func (b *Buffer[T]) Len() int {
	return b.size
}

// Cap returns the fixed capacity of the buffer.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// Empty returns whether the buffer holds no elements.
func (b *Buffer[T]) Empty() bool {
	return b.size == 0
}

// Full returns whether the next PushBack will evict the oldest element.
func (b *Buffer[T]) Full() bool {
	return b.size == len(b.items)
}

// Head returns the physical slot of the oldest element.
func (b *Buffer[T]) Head() int {
	return b.head
}

// Physical resolves a logical index to its physical slot.
func (b *Buffer[T]) Physical(i int) int {
	return b.move(b.head, i)
}

// PushBack appends v. If the buffer is full the oldest element is evicted
// first and returned with ok set.
func (b *Buffer[T]) PushBack(v T) (evicted T, ok bool) {
	if b.Full() {
		evicted, ok = b.PopFront()
	}
	b.items[b.move(b.head, b.size)] = v
	b.size++
	return evicted, ok
}

// PopFront removes and returns the oldest element. On an empty buffer it
// returns the zero value and false.
func (b *Buffer[T]) PopFront() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	v := b.items[b.head]
	b.items[b.head] = zero
	b.head = b.move(b.head, 1)
	b.size--
	return v, true
}

// Front returns the oldest element, or the zero value and false if empty.
func (b *Buffer[T]) Front() (T, bool) {
	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.items[b.head], true
}

// Back returns the newest element, or the zero value and false if empty.
func (b *Buffer[T]) Back() (T, bool) {
	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.items[b.move(b.head, b.size-1)], true
}

// At returns the element at logical index i. Like a slice index it panics if
// i is outside [0, Len()).
func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.size {
		panic("ring: index out of range")
	}
	return b.items[b.move(b.head, i)]
}

// Clear removes every element without releasing the backing storage.
func (b *Buffer[T]) Clear() {
	clear(b.items)
	b.head = 0
	b.size = 0
}

// Fill replaces the contents with capacity copies of v.
func (b *Buffer[T]) Fill(v T) {
	b.Clear()
	for range b.items {
		b.PushBack(v)
	}
}

// All iterates the elements from oldest to newest with their logical index.
func (b *Buffer[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := range b.size {
			if !yield(i, b.items[b.move(b.head, i)]) {
				return
			}
		}
	}
}

// View lends fn the physical slots [from, to] as one contiguous read-only
// slice. The slice aliases the backing storage and must not be retained or
// modified once fn returns; callers that need the data afterwards copy it.
// The bounds are physical positions, so a logical range that wraps past the
// end of storage takes two views.
func (b *Buffer[T]) View(from, to int, fn func([]T)) {
	if from < 0 || to >= len(b.items) || from > to {
		panic("ring: invalid physical view")
	}
	fn(b.items[from : to+1 : to+1])
}

// move advances a physical position by n slots, wrapping at the capacity.
func (b *Buffer[T]) move(pos, n int) int {
	pos += n
	if pos >= len(b.items) {
		pos -= len(b.items)
	}
	return pos
}
