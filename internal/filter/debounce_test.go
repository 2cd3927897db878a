package filter_test

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/HerbHall/artiscatalog/internal/filter"
	"github.com/HerbHall/artiscatalog/internal/testutil"
)

type commits struct {
	mu  sync.Mutex
	got []string
}

func (c *commits) record(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, v)
}

func (c *commits) values() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.got...)
}

func newFakeDebouncer(clock *testutil.Clock, commit func(string)) *filter.Debouncer {
	return filter.NewDebouncer(300*time.Millisecond, commit,
		filter.WithAfterFunc(func(d time.Duration, f func()) filter.Timer {
			return clock.AfterFunc(d, f)
		}))
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	clock := testutil.NewClock()
	var c commits
	d := newFakeDebouncer(clock, c.record)

	d.Push("o")
	clock.Advance(100 * time.Millisecond)
	d.Push("oa")
	clock.Advance(100 * time.Millisecond)
	d.Push("oak")

	clock.Advance(299 * time.Millisecond)
	if got := c.values(); len(got) != 0 {
		t.Fatalf("committed early: %v", got)
	}
	if v, ok := d.Pending(); !ok || v != "oak" {
		t.Fatalf("Pending() = %q, %v; want oak, true", v, ok)
	}

	clock.Advance(time.Millisecond)
	got := c.values()
	if len(got) != 1 || got[0] != "oak" {
		t.Fatalf("commits = %v, want [oak]", got)
	}
	if clock.Pending() != 0 {
		t.Errorf("%d timers left pending", clock.Pending())
	}
}

func TestDebouncer_SeparateBursts(t *testing.T) {
	clock := testutil.NewClock()
	var c commits
	d := newFakeDebouncer(clock, c.record)

	d.Push("teak")
	clock.Advance(time.Second)
	d.Push("ash")
	clock.Advance(time.Second)

	got := c.values()
	if len(got) != 2 || got[0] != "teak" || got[1] != "ash" {
		t.Fatalf("commits = %v, want [teak ash]", got)
	}
}

func TestDebouncer_Flush(t *testing.T) {
	clock := testutil.NewClock()
	var c commits
	d := newFakeDebouncer(clock, c.record)

	d.Flush()
	d.Push("maple")
	d.Flush()
	clock.Advance(time.Second)

	got := c.values()
	if len(got) != 1 || got[0] != "maple" {
		t.Fatalf("commits = %v, want [maple]", got)
	}
	if _, ok := d.Pending(); ok {
		t.Error("Pending() after Flush should be false")
	}
}

func TestDebouncer_Stop(t *testing.T) {
	clock := testutil.NewClock()
	var c commits
	d := newFakeDebouncer(clock, c.record)

	d.Push("walnut")
	d.Stop()
	clock.Advance(time.Second)

	if got := c.values(); len(got) != 0 {
		t.Fatalf("commits = %v, want none after Stop", got)
	}
}

func TestDebouncer_RealTimer(t *testing.T) {
	defer goleak.VerifyNone(t)

	done := make(chan string, 1)
	d := filter.NewDebouncer(20*time.Millisecond, func(v string) { done <- v })

	d.Push("s")
	d.Push("sl")
	d.Push("slate")

	select {
	case v := <-done:
		if v != "slate" {
			t.Errorf("committed %q, want slate", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no commit within 2s")
	}

	select {
	case v := <-done:
		t.Errorf("unexpected second commit %q", v)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestNewDebouncer_DefaultWindow(t *testing.T) {
	clock := testutil.NewClock()
	var c commits
	var window time.Duration
	d := filter.NewDebouncer(0, c.record, filter.WithAfterFunc(func(dur time.Duration, f func()) filter.Timer {
		window = dur
		return clock.AfterFunc(dur, f)
	}))

	d.Push("x")
	if window != filter.DefaultDebounceWindow {
		t.Errorf("window = %v, want %v", window, filter.DefaultDebounceWindow)
	}
}
