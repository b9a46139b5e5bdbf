package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Registry runs at most one countdown per key (a pool ID) and owns their
// teardown.
type Registry struct {
	clock Clock

	mu     sync.Mutex
	active map[string]*watch
}

type watch struct {
	countdown *Countdown
	done      chan struct{}
}

// NewRegistry creates an empty registry. A nil clock means the real clock.
func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clock:  clock,
		active: make(map[string]*watch),
	}
}

// Watch starts a countdown to endTime for key and hands every tick to fn,
// the first one before Watch returns. Any countdown already running for key
// is cancelled first. fn runs on the countdown's own goroutine and must not
// call back into the registry for the same key.
func (r *Registry) Watch(ctx context.Context, key string, endTime time.Time, fn func(Tick)) Tick {
	w := &watch{
		countdown: New(endTime, r.clock),
		done:      make(chan struct{}),
	}

	// Started before it is published, so a concurrent Cancel can only stop a
	// countdown that already holds its first tick.
	first := w.countdown.Start(ctx)
	r.replace(key, w)
	fn(first)

	go r.forward(key, w, fn)

	log.Debug().
		Str("key", key).
		Time("end_time", endTime).
		Bool("expired", first.State.IsExpired).
		Msg("countdown started")

	return first
}

// Current returns the latest tick of the countdown running for key.
func (r *Registry) Current(key string) (Tick, bool) {
	r.mu.Lock()
	w, ok := r.active[key]
	r.mu.Unlock()
	if !ok {
		return Tick{}, false
	}
	return w.countdown.Current(), true
}

// EndTime returns the deadline of the countdown running for key.
func (r *Registry) EndTime(key string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.active[key]
	if !ok {
		return time.Time{}, false
	}
	return w.countdown.EndTime(), true
}

// Cancel stops the countdown for key. Once it returns fn is not called again.
func (r *Registry) Cancel(key string) {
	r.mu.Lock()
	w, ok := r.active[key]
	if ok {
		delete(r.active, key)
	}
	r.mu.Unlock()

	if ok {
		w.stop()
		log.Debug().Str("key", key).Msg("cancelled countdown")
	}
}

// CancelAll stops every running countdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	active := r.active
	r.active = make(map[string]*watch)
	r.mu.Unlock()

	for _, w := range active {
		w.stop()
	}
}

// Active returns the number of running countdowns.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// replace swaps in a new watch for key and stops the one it displaces.
func (r *Registry) replace(key string, w *watch) {
	r.mu.Lock()
	existing, exists := r.active[key]
	r.active[key] = w
	r.mu.Unlock()

	if exists {
		existing.stop()
		log.Debug().Str("key", key).Msg("replaced existing countdown")
	}
}

func (r *Registry) forward(key string, w *watch, fn func(Tick)) {
	defer close(w.done)

	for tick := range w.countdown.C() {
		fn(tick)
	}

	// The countdown ended on its own (ctx done); drop it unless replaced.
	r.mu.Lock()
	if r.active[key] == w {
		delete(r.active, key)
	}
	r.mu.Unlock()
}

func (w *watch) stop() {
	w.countdown.Stop()
	<-w.done
}
