package search

import (
	"sync/atomic"
	"testing"
	"time"
)

const testDelay = 20 * time.Millisecond

func TestDebouncerTrailingEdge(t *testing.T) {
	d := NewDebouncer(testDelay)
	got := make(chan int, 3)

	for i := 1; i <= 3; i++ {
		d.Trigger(func() { got <- i })
	}
	if !d.Pending() {
		t.Error("Pending() = false after Trigger")
	}

	select {
	case v := <-got:
		if v != 3 {
			t.Errorf("ran call %d, want 3", v)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced call never ran")
	}

	select {
	case v := <-got:
		t.Errorf("extra call %d ran", v)
	case <-time.After(5 * testDelay):
	}
	if d.Pending() {
		t.Error("Pending() = true after call ran")
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(testDelay)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })

	if !d.Cancel() {
		t.Error("Cancel() = false with a pending call")
	}
	if d.Cancel() {
		t.Error("Cancel() = true with nothing pending")
	}
	time.Sleep(5 * testDelay)
	if n := calls.Load(); n != 0 {
		t.Errorf("calls = %d after Cancel, want 0", n)
	}
}

func TestDebouncerFlush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })

	if !d.Flush() {
		t.Error("Flush() = false with a pending call")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d after Flush, want 1", n)
	}
	if d.Flush() {
		t.Error("Flush() = true with nothing pending")
	}
}

func TestNewDebouncerDefault(t *testing.T) {
	if d := NewDebouncer(0); d.Delay() != DefaultDelay {
		t.Errorf("Delay() = %v, want %v", d.Delay(), DefaultDelay)
	}
}
