package queue

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMPMC_RejectsNonPowerOfTwo(t *testing.T) {
	_, err := NewMPMC[int](10)
	assert.ErrorIs(t, err, ErrCapacityNotPowerOfTwo)

	q, err := NewMPMC[int](16)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), q.Capacity())
}

func TestMPMC_TryEnqueueFullReturnsFalse(t *testing.T) {
	q, err := NewMPMC[int](4)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		assert.True(t, q.TryEnqueue(i))
	}
	assert.False(t, q.TryEnqueue(99))
}

func TestMPMC_TryDequeueEmptyReturnsFalse(t *testing.T) {
	q, err := NewMPMC[int](4)
	require.NoError(t, err)

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestMPMC_FIFOSingleProducerSingleConsumer(t *testing.T) {
	q, err := NewMPMC[int](64)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.True(t, q.TryEnqueue(i))
	}
	for i := 0; i < 50; i++ {
		v, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

// TestMPMC_ManyProducersManyConsumers checks that, with many producers and
// consumers, every enqueued item is dequeued exactly once.
func TestMPMC_ManyProducersManyConsumers(t *testing.T) {
	q, err := NewMPMC[int](1024)
	require.NoError(t, err)

	const nProducers = 8
	const perProducer = 2000
	const total = nProducers * perProducer

	var wg sync.WaitGroup
	for p := 0; p < nProducers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := base*perProducer + i
				require.True(t, q.Enqueue(v, 100_000))
			}
		}(p)
	}

	results := make(chan int, total)
	var consumerWG sync.WaitGroup
	for c := 0; c < 4; c++ {
		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			for {
				v, ok := q.Dequeue(1000)
				if !ok {
					if q.Empty() {
						return
					}
					continue
				}
				results <- v
			}
		}()
	}

	wg.Wait()
	consumerWG.Wait()
	close(results)

	seen := make(map[int]bool, total)
	got := make([]int, 0, total)
	for v := range results {
		assert.False(t, seen[v], "no duplicates permitted")
		seen[v] = true
		got = append(got, v)
	}
	sort.Ints(got)
	require.Len(t, got, total)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}
