package renderq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrain_RunsInOrder(t *testing.T) {
	q := New()

	var got []int
	for i := 0; i < 3; i++ {
		assert.True(t, q.Post(func() { got = append(got, i) }))
	}
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, 3, q.Drain())
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Zero(t, q.Drain())
}

func TestDrain_PostDuringDrainWaits(t *testing.T) {
	q := New()

	ran := 0
	q.Post(func() {
		q.Post(func() { ran++ })
	})

	assert.Equal(t, 1, q.Drain())
	assert.Zero(t, ran)
	assert.Equal(t, 1, q.Drain())
	assert.Equal(t, 1, ran)
}

func TestClose_RejectsButKeepsPending(t *testing.T) {
	q := New()

	ran := 0
	q.Post(func() { ran++ })
	q.Close()

	assert.False(t, q.Post(func() { ran++ }))
	assert.Equal(t, uint64(1), q.Dropped())

	assert.Equal(t, 1, q.Drain())
	assert.Equal(t, 1, ran)
}

func TestPost_Concurrent(t *testing.T) {
	q := New()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Post(func() {})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, q.Drain())
}
