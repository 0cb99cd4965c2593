package queue

// ringBuffer is a bounded FIFO of at most limit values. Backing storage grows
// on demand up to limit so small queues with a large limit stay small.
type ringBuffer[T any] struct {
	data  []T
	head  int
	n     int
	limit int
}

func newRingBuffer[T any](limit int) *ringBuffer[T] {
	return &ringBuffer[T]{limit: limit}
}

func (r *ringBuffer[T]) pushBack(v T) bool {
	if r.n >= r.limit {
		return false
	}
	if r.n == len(r.data) {
		r.grow()
	}
	r.data[(r.head+r.n)%len(r.data)] = v
	r.n++
	return true
}

func (r *ringBuffer[T]) popFront() (zero T, _ bool) {
	if r.n == 0 {
		return zero, false
	}
	v := r.data[r.head]
	r.data[r.head] = zero
	r.head = (r.head + 1) % len(r.data)
	r.n--
	return v, true
}

func (r *ringBuffer[T]) len() int   { return r.n }
func (r *ringBuffer[T]) full() bool { return r.n >= r.limit }

func (r *ringBuffer[T]) reset() {
	r.data = nil
	r.head = 0
	r.n = 0
}

func (r *ringBuffer[T]) grow() {
	size := 2 * len(r.data)
	if size < 8 {
		size = 8
	}
	if size > r.limit {
		size = r.limit
	}
	data := make([]T, size)
	for i := 0; i < r.n; i++ {
		data[i] = r.data[(r.head+i)%len(r.data)]
	}
	r.data = data
	r.head = 0
}
