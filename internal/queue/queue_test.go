package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_PushDrainPreservesOrder(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	q.Push(3)

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []int{1, 2, 3}, q.Drain())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_DrainEmpty(t *testing.T) {
	q := New[string]()
	assert.Empty(t, q.Drain())
}

func TestQueue_DrainedSliceIsIndependent(t *testing.T) {
	q := New[int]()
	q.Push(1)
	first := q.Drain()
	q.Push(2)

	assert.Equal(t, []int{1}, first)
	assert.Equal(t, []int{2}, q.Drain())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Push(n)
		}(i)
	}
	wg.Wait()

	assert.Len(t, q.Drain(), 100)
}
