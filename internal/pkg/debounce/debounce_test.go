package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emission struct {
	value string
	at    time.Time
}

type recorder struct {
	mu    sync.Mutex
	clock clockwork.Clock
	got   []emission
	ch    chan struct{}
}

func newRecorder(clock clockwork.Clock) *recorder {
	return &recorder{clock: clock, ch: make(chan struct{}, 16)}
}

func (r *recorder) emit(v string) {
	r.mu.Lock()
	r.got = append(r.got, emission{value: v, at: r.clock.Now()})
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) emissions() []emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emission(nil), r.got...)
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(time.Second):
		t.Fatal("no emission")
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
		t.Fatal("unexpected emission")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncer_OnlyLastValueOfBurst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	start := clock.Now()
	rec := newRecorder(clock)
	d := New(clock, 500*time.Millisecond, rec.emit)

	d.Set("a")
	clock.Advance(100 * time.Millisecond)
	d.Set("ab")
	clock.Advance(100 * time.Millisecond)
	d.Set("abc")

	clock.Advance(499 * time.Millisecond)
	rec.none(t)

	clock.Advance(time.Millisecond)
	rec.wait(t)

	got := rec.emissions()
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].value)
	assert.Equal(t, 700*time.Millisecond, got[0].at.Sub(start))

	clock.Advance(time.Second)
	rec.none(t)
}

func TestDebouncer_SeparateBursts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newRecorder(clock)
	d := New(clock, 300*time.Millisecond, rec.emit)

	d.Set("first")
	clock.Advance(300 * time.Millisecond)
	rec.wait(t)

	d.Set("second")
	clock.Advance(300 * time.Millisecond)
	rec.wait(t)

	got := rec.emissions()
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].value)
	assert.Equal(t, "second", got[1].value)
}

func TestDebouncer_FlushAndStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newRecorder(clock)
	d := New(clock, time.Second, rec.emit)

	d.Set("now")
	d.Flush()
	rec.wait(t)

	clock.Advance(time.Second)
	rec.none(t)

	d.Set("dropped")
	d.Stop()
	clock.Advance(time.Second)
	rec.none(t)

	d.Set("ignored")
	clock.Advance(time.Second)
	rec.none(t)

	assert.Len(t, rec.emissions(), 1)
}
