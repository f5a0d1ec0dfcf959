package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPSC_EmptyInitially(t *testing.T) {
	q := NewSPSC[int]()
	assert.True(t, q.Empty())
	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestSPSC_PreservesEnqueueOrder(t *testing.T) {
	q := NewSPSC[int]()
	for i := 0; i < 100; i++ {
		q.Enqueue(i)
	}
	assert.Equal(t, 100, q.ApproxSize())

	for i := 0; i < 100; i++ {
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.True(t, q.Empty())
}

func TestSPSC_InterleavedProducerConsumer(t *testing.T) {
	q := NewSPSC[int]()
	const n = 10_000

	var wg sync.WaitGroup
	wg.Add(1)

	received := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(received) < n {
			if v, ok := q.Dequeue(); ok {
				received = append(received, v)
			}
		}
	}()

	for i := 0; i < n; i++ {
		q.Enqueue(i)
	}
	wg.Wait()

	require.Len(t, received, n)
	for i, v := range received {
		assert.Equal(t, i, v, "dequeued items must be a prefix of enqueued items in enqueue order")
	}
}
