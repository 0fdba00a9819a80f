package workerpool

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIndexed_VisitsEveryIndexExactlyOnce(t *testing.T) {
	const total = 200
	var seen [total]atomic.Int32

	pool := New(8)
	err := pool.RunIndexed(total, nil, func(i int) error {
		seen[i].Add(1)
		return nil
	})
	require.NoError(t, err)

	for i := range seen {
		assert.Equal(t, int32(1), seen[i].Load(), "index %d visited %d times", i, seen[i].Load())
	}
}

func TestRunIndexed_StopsDispatchingAfterError(t *testing.T) {
	wantErr := errors.New("boom")
	var calls atomic.Int32

	pool := New(4)
	err := pool.RunIndexed(1000, nil, func(i int) error {
		calls.Add(1)
		if i == 5 {
			return wantErr
		}
		return nil
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Less(t, int64(calls.Load()), int64(1000))
}

func TestRunIndexed_ZeroTotalIsNoop(t *testing.T) {
	pool := New(2)
	called := false
	err := pool.RunIndexed(0, nil, func(i int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRunQueue_ConsumesAllJobs(t *testing.T) {
	jobs := make(chan int, 10)
	for i := 0; i < 10; i++ {
		jobs <- i
	}
	close(jobs)

	var total atomic.Int64
	err := RunQueue(3, jobs, nil, func(j int) error {
		total.Add(int64(j))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(45), total.Load())
}

func TestSignal_CancelMarksSignalCancelled(t *testing.T) {
	sig := NewSignal()
	assert.False(t, sig.Cancelled())
	sig.Cancel()
	assert.True(t, sig.Cancelled())
}

func TestSignal_NilIsSafeAndNeverCancelled(t *testing.T) {
	var sig *Signal
	assert.False(t, sig.Cancelled())
	sig.Cancel() // must not panic
}
