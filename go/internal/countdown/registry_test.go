package countdown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect() (chan Tick, func(Tick)) {
	ch := make(chan Tick, 16)
	return ch, func(t Tick) { ch <- t }
}

func TestRegistry_WatchDeliversFirstTickSynchronously(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	reg := NewRegistry(clock)
	defer reg.CancelAll()

	ticks, fn := collect()
	first := reg.Watch(context.Background(), "pool-1", epoch.Add(time.Minute), fn)

	require.Len(t, ticks, 1)
	assert.Equal(t, first, <-ticks)
	assert.Equal(t, State{Minutes: 1}, first.State)
	assert.Equal(t, 1, reg.Active())

	clock.Advance(RefreshInterval)
	assert.Equal(t, State{Seconds: 59}, receive(t, ticks).State)

	current, ok := reg.Current("pool-1")
	require.True(t, ok)
	assert.Equal(t, State{Seconds: 59}, current.State)
}

func TestRegistry_CancelStopsCallbacks(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	reg := NewRegistry(clock)

	ticks, fn := collect()
	reg.Watch(context.Background(), "pool-1", epoch.Add(time.Minute), fn)
	<-ticks

	reg.Cancel("pool-1")
	clock.Advance(5 * RefreshInterval)

	assert.Equal(t, 0, reg.Active())
	select {
	case tick := <-ticks:
		t.Fatalf("unexpected tick after cancel: %+v", tick)
	case <-time.After(50 * time.Millisecond):
	}

	_, ok := reg.Current("pool-1")
	assert.False(t, ok)
}

func TestRegistry_WatchReplacesExisting(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	reg := NewRegistry(clock)
	defer reg.CancelAll()

	oldTicks, oldFn := collect()
	reg.Watch(context.Background(), "pool-1", epoch.Add(time.Minute), oldFn)
	<-oldTicks

	newTicks, newFn := collect()
	reg.Watch(context.Background(), "pool-1", epoch.Add(time.Hour), newFn)
	<-newTicks

	assert.Equal(t, 1, reg.Active())
	end, ok := reg.EndTime("pool-1")
	require.True(t, ok)
	assert.Equal(t, epoch.Add(time.Hour), end)

	clock.Advance(RefreshInterval)
	assert.Equal(t, State{Minutes: 59, Seconds: 59}, receive(t, newTicks).State)
	assert.Len(t, oldTicks, 0)
}

func TestRegistry_ContextCancelRemovesWatch(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	reg := NewRegistry(clock)
	ctx, cancel := context.WithCancel(context.Background())

	_, fn := collect()
	reg.Watch(ctx, "pool-1", epoch.Add(time.Minute), fn)
	cancel()

	assert.Eventually(t, func() bool { return reg.Active() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRegistry_CancelAll(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	reg := NewRegistry(clock)

	for _, key := range []string{"a", "b", "c"} {
		_, fn := collect()
		reg.Watch(context.Background(), key, epoch.Add(time.Minute), fn)
	}
	require.Equal(t, 3, reg.Active())

	reg.CancelAll()

	assert.Equal(t, 0, reg.Active())
}

func TestRegistry_ConcurrentCancelNeverYieldsEmptyTick(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	reg := NewRegistry(clock)
	defer reg.CancelAll()

	for i := 0; i < 200; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			reg.Cancel("pool-1")
		}()

		var got []Tick
		var mu sync.Mutex
		reg.Watch(context.Background(), "pool-1", epoch.Add(time.Minute), func(tick Tick) {
			mu.Lock()
			got = append(got, tick)
			mu.Unlock()
		})
		<-done

		mu.Lock()
		require.NotEmpty(t, got)
		assert.Equal(t, epoch, got[0].At)
		assert.Equal(t, State{Minutes: 1}, got[0].State)
		mu.Unlock()
	}
}
