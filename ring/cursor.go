// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package ring

// Cursor is a logical position within a Buffer. It is a plain value: moving
// it never touches the buffer, and reads validate the position against the
// buffer's length at the time of the read.
type Cursor[T any] struct {
	buf *Buffer[T]
	pos int
}

// Begin returns a cursor at the oldest element.
func (b *Buffer[T]) Begin() Cursor[T] {
	return Cursor[T]{buf: b}
}

// End returns a cursor one past the newest element.
func (b *Buffer[T]) End() Cursor[T] {
	return Cursor[T]{buf: b, pos: b.size}
}

// Pos returns the logical index of the cursor.
func (c Cursor[T]) Pos() int {
	return c.pos
}

// Add returns the cursor moved n elements towards the newest.
func (c Cursor[T]) Add(n int) Cursor[T] {
	c.pos += n
	return c
}

// Sub returns the cursor moved n elements towards the oldest.
func (c Cursor[T]) Sub(n int) Cursor[T] {
	c.pos -= n
	return c
}

// Next is shorthand for Add(1).
func (c Cursor[T]) Next() Cursor[T] {
	return c.Add(1)
}

// Prev is shorthand for Sub(1).
func (c Cursor[T]) Prev() Cursor[T] {
	return c.Sub(1)
}

// Diff returns the signed distance c - o.
func (c Cursor[T]) Diff(o Cursor[T]) int {
	return c.pos - o.pos
}

// Equal reports whether both cursors point at the same position.
func (c Cursor[T]) Equal(o Cursor[T]) bool {
	return c.pos == o.pos
}

// Less reports whether c is before o.
func (c Cursor[T]) Less(o Cursor[T]) bool {
	return c.pos < o.pos
}

// Valid reports whether the cursor can be dereferenced.
func (c Cursor[T]) Valid() bool {
	return c.buf != nil && c.pos >= 0 && c.pos < c.buf.size
}

// Value dereferences the cursor. It returns false if the position is outside
// the buffer's current contents.
func (c Cursor[T]) Value() (T, bool) {
	if !c.Valid() {
		var zero T
		return zero, false
	}
	return c.buf.At(c.pos), true
}
