package clock

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	t.Parallel()

	c := NewManual()
	var got []string
	c.AfterFunc(30*time.Millisecond, func() { got = append(got, "c") })
	c.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	c.AfterFunc(10*time.Millisecond, func() { got = append(got, "b") })

	c.Advance(20 * time.Millisecond)
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("after 20ms (-want +got):\n%s", diff)
	}

	c.Advance(10 * time.Millisecond)
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("after 30ms (-want +got):\n%s", diff)
	}
	if c.Now() != 30*time.Millisecond {
		t.Errorf("Now() = %v, want 30ms", c.Now())
	}
}

func TestManual_Stop(t *testing.T) {
	t.Parallel()

	c := NewManual()
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop() on pending timer = false, want true")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}

	c.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestManual_RearmWithinWindow(t *testing.T) {
	t.Parallel()

	c := NewManual()
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		c.AfterFunc(100*time.Millisecond, tick)
	}
	c.AfterFunc(100*time.Millisecond, tick)

	c.Advance(450 * time.Millisecond)
	if ticks != 4 {
		t.Errorf("ticks = %d, want 4", ticks)
	}
	if c.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", c.Pending())
	}
}

func TestReal_AfterFunc(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	Real{}.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("real timer did not fire")
	}
}
