package workpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsSubmittedTask(t *testing.T) {
	p := New(2, 4)
	defer p.Close()

	ch, err := p.Submit(Task{Priority: 1, Run: func() (interface{}, error) {
		return "ok", nil
	}})
	require.NoError(t, err)

	res := <-ch
	require.NoError(t, res.Err)
	assert.Equal(t, "ok", res.Value)
}

func TestPool_ErrorsPropagate(t *testing.T) {
	p := New(1, 4)
	defer p.Close()

	ch, err := p.Submit(Task{Priority: 1, Run: func() (interface{}, error) {
		return nil, errors.New("boom")
	}})
	require.NoError(t, err)

	res := <-ch
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "boom")
	assert.Nil(t, res.Value)
}

func TestPool_HigherPriorityRunsFirst(t *testing.T) {
	p := New(1, 8)
	defer p.Close()

	gate := make(chan struct{})
	var mu sync.Mutex
	var order []string

	// The blocker has the highest priority so it is popped first no matter
	// when the single worker wakes up.
	blockerCh, err := p.Submit(Task{Priority: 100, Run: func() (interface{}, error) {
		<-gate
		return nil, nil
	}})
	require.NoError(t, err)

	submit := func(name string, priority float64) <-chan Result {
		ch, err := p.Submit(Task{Priority: priority, Run: func() (interface{}, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil, nil
		}})
		require.NoError(t, err)
		return ch
	}

	lowCh := submit("low", 1)
	highCh := submit("high", 5)
	close(gate)

	<-blockerCh
	<-lowCh
	<-highCh

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"high", "low"}, order)
}

func TestPool_EqualPriorityIsFIFO(t *testing.T) {
	p := New(1, 8)
	defer p.Close()

	gate := make(chan struct{})
	var mu sync.Mutex
	var order []string

	blockerCh, err := p.Submit(Task{Priority: 100, Run: func() (interface{}, error) {
		<-gate
		return nil, nil
	}})
	require.NoError(t, err)

	var chans []<-chan Result
	for _, name := range []string{"a", "b", "c"} {
		name := name
		ch, err := p.Submit(Task{Priority: 1, Run: func() (interface{}, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil, nil
		}})
		require.NoError(t, err)
		chans = append(chans, ch)
	}
	close(gate)

	<-blockerCh
	for _, ch := range chans {
		<-ch
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestPool_QueueFullRejects(t *testing.T) {
	p := New(1, 2)
	defer p.Close()

	started := make(chan struct{})
	gate := make(chan struct{})

	blockerCh, err := p.Submit(Task{Priority: 1, Run: func() (interface{}, error) {
		close(started)
		<-gate
		return nil, nil
	}})
	require.NoError(t, err)
	<-started

	noop := Task{Priority: 1, Run: func() (interface{}, error) { return nil, nil }}

	first, err := p.Submit(noop)
	require.NoError(t, err)
	second, err := p.Submit(noop)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Queued())

	_, err = p.Submit(noop)
	assert.ErrorIs(t, err, ErrQueueFull)

	close(gate)
	<-blockerCh
	<-first
	<-second
}

func TestPool_CloseDrainsQueuedWork(t *testing.T) {
	p := New(1, 4)

	started := make(chan struct{})
	gate := make(chan struct{})
	var done atomic.Int32

	_, err := p.Submit(Task{Priority: 1, Run: func() (interface{}, error) {
		close(started)
		<-gate
		return nil, nil
	}})
	require.NoError(t, err)
	<-started

	for i := 0; i < 2; i++ {
		_, err := p.Submit(Task{Priority: 1, Run: func() (interface{}, error) {
			done.Add(1)
			return nil, nil
		}})
		require.NoError(t, err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(gate)
	}()
	p.Close()

	assert.Equal(t, int32(2), done.Load())

	_, err = p.Submit(Task{Priority: 1, Run: func() (interface{}, error) { return nil, nil }})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPool_AbandonedResultDoesNotBlockWorker(t *testing.T) {
	p := New(1, 4)
	defer p.Close()

	// Nobody reads this result, the buffered channel absorbs it.
	_, err := p.Submit(Task{Priority: 1, Run: func() (interface{}, error) {
		return "ignored", nil
	}})
	require.NoError(t, err)

	ch, err := p.Submit(Task{Priority: 1, Run: func() (interface{}, error) {
		return "read", nil
	}})
	require.NoError(t, err)

	res := <-ch
	assert.Equal(t, "read", res.Value)
}

func TestPool_ConcurrentSubmissions(t *testing.T) {
	p := New(4, 64)
	defer p.Close()

	var done atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, err := p.Submit(Task{Priority: float64(i % 5), Run: func() (interface{}, error) {
				done.Add(1)
				return nil, nil
			}})
			if err != nil {
				t.Error(err)
				return
			}
			<-ch
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(32), done.Load())
}
