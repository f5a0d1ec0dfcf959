package queue

import (
	"errors"
	"runtime"
	"sync/atomic"
)

// ErrCapacityNotPowerOfTwo is returned by NewMPMC when asked for a capacity
// that is not a power of two, which the ring's masking arithmetic requires.
var ErrCapacityNotPowerOfTwo = errors.New("queue: mpmc capacity must be a power of two")

type mpmcCell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// MPMC is a bounded, lock-free ring buffer supporting many concurrent
// producers and many concurrent consumers, following the sequence-stamped
// cell protocol popularized by Dmitry Vyukov's bounded MPMC queue: a
// producer reserves a cell by winning a compare-and-swap on enqueuePos,
// writes its data, then publishes by bumping the cell's sequence; a
// consumer mirrors the same dance on dequeuePos.
type MPMC[T any] struct {
	buffer []mpmcCell[T]
	mask   uint64
	_      [cacheLineSize]byte

	enqueuePos atomic.Uint64
	_          [cacheLineSize]byte

	dequeuePos atomic.Uint64
	_          [cacheLineSize]byte
}

// NewMPMC constructs a ring of the given capacity, which must be a power of
// two.
func NewMPMC[T any](capacity uint64) (*MPMC[T], error) {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return nil, ErrCapacityNotPowerOfTwo
	}
	q := &MPMC[T]{
		buffer: make([]mpmcCell[T], capacity),
		mask:   capacity - 1,
	}
	for i := range q.buffer {
		q.buffer[i].sequence.Store(uint64(i))
	}
	return q, nil
}

// TryEnqueue attempts to push value without blocking. It returns false if
// the ring is full.
func (q *MPMC[T]) TryEnqueue(value T) bool {
	pos := q.enqueuePos.Load()
	for {
		cell := &q.buffer[pos&q.mask]
		seq := cell.sequence.Load()
		diff := int64(seq) - int64(pos)

		switch {
		case diff == 0:
			if q.enqueuePos.CompareAndSwap(pos, pos+1) {
				cell.data = value
				cell.sequence.Store(pos + 1)
				return true
			}
		case diff < 0:
			return false
		default:
			pos = q.enqueuePos.Load()
		}
	}
}

// TryDequeue attempts to pop the oldest value without blocking. It returns
// ok=false if the ring is empty.
func (q *MPMC[T]) TryDequeue() (value T, ok bool) {
	pos := q.dequeuePos.Load()
	for {
		cell := &q.buffer[pos&q.mask]
		seq := cell.sequence.Load()
		diff := int64(seq) - int64(pos+1)

		switch {
		case diff == 0:
			if q.dequeuePos.CompareAndSwap(pos, pos+1) {
				data := cell.data
				var zero T
				cell.data = zero
				cell.sequence.Store(pos + uint64(len(q.buffer)))
				return data, true
			}
		case diff < 0:
			var zero T
			return zero, false
		default:
			pos = q.dequeuePos.Load()
		}
	}
}

// Enqueue retries TryEnqueue up to maxRetries times, spinning briefly before
// yielding the goroutine, and reports whether it eventually succeeded. A
// caller should treat a false return as a shed-load signal, not an error.
func (q *MPMC[T]) Enqueue(value T, maxRetries int) bool {
	for i := 0; i < maxRetries; i++ {
		if q.TryEnqueue(value) {
			return true
		}
		spinOrYield(i)
	}
	return false
}

// Dequeue retries TryDequeue up to maxRetries times with the same
// spin-then-yield backoff as Enqueue.
func (q *MPMC[T]) Dequeue(maxRetries int) (value T, ok bool) {
	for i := 0; i < maxRetries; i++ {
		if v, found := q.TryDequeue(); found {
			return v, true
		}
		spinOrYield(i)
	}
	var zero T
	return zero, false
}

// spinOrYield busy-spins for the first few retries (cheap, no syscall) then
// falls back to yielding the goroutine, mirroring the pause-then-yield
// backoff of the reference implementation.
func spinOrYield(attempt int) {
	if attempt < 10 {
		for i := 0; i < 30; i++ {
			// Cheap spin: give the CPU something trivial to chew on
			// without touching shared state.
		}
		return
	}
	runtime.Gosched()
}

// Empty reports whether the ring currently holds no items. The result is
// only approximate under concurrent access.
func (q *MPMC[T]) Empty() bool {
	return q.enqueuePos.Load() == q.dequeuePos.Load()
}

// ApproxSize returns an approximate count of pending items.
func (q *MPMC[T]) ApproxSize() uint64 {
	enq := q.enqueuePos.Load()
	deq := q.dequeuePos.Load()
	if deq > enq {
		return 0
	}
	return enq - deq
}

// Capacity returns the fixed ring capacity.
func (q *MPMC[T]) Capacity() uint64 {
	return uint64(len(q.buffer))
}
