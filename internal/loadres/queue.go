package loadres

// Queue is a FIFO ring buffer that grows when full.
type Queue[T any] struct {
	data  []T
	read  int
	write int
	count int
}

// NewQueue returns a queue with room for size items before it grows.
func NewQueue[T any](size int) *Queue[T] {
	if size < 1 {
		size = 1
	}
	return &Queue[T]{data: make([]T, size)}
}

// Enqueue appends v at the back.
func (q *Queue[T]) Enqueue(v T) {
	if q.data == nil {
		q.data = make([]T, 4)
	}
	if q.count == len(q.data) {
		q.grow()
	}
	q.data[q.write] = v
	q.write = (q.write + 1) % len(q.data)
	q.count++
}

// Dequeue removes and returns the front item.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}
	v := q.data[q.read]
	q.data[q.read] = zero
	q.read = (q.read + 1) % len(q.data)
	q.count--
	return v, true
}

// Peek returns the front item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.data[q.read], true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return q.count }

// IsEmpty reports whether the queue holds nothing.
func (q *Queue[T]) IsEmpty() bool { return q.count == 0 }

// Clear drops every queued item.
func (q *Queue[T]) Clear() {
	clear(q.data)
	q.read, q.write, q.count = 0, 0, 0
}

func (q *Queue[T]) grow() {
	next := make([]T, len(q.data)*2)
	n := copy(next, q.data[q.read:])
	copy(next[n:], q.data[:q.read])
	q.data = next
	q.read = 0
	q.write = q.count
}
