package reactive

import (
	"sync"
	"testing"
)

func TestCell_GetSet(t *testing.T) {
	c := NewCell(1)
	if got := c.Get(); got != 1 {
		t.Errorf("Get() = %d, want initial 1", got)
	}
	c.Set(2)
	if got := c.Get(); got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
}

func TestCell_WatchAndCancel(t *testing.T) {
	c := NewCell("a")

	var seen []string
	cancel := c.Watch(func(v string) { seen = append(seen, v) })

	c.Set("b")
	c.Update(func(s string) string { return s + "c" })
	cancel()
	cancel() // repeated cancel is a no-op
	c.Set("d")

	want := []string{"b", "bc"}
	if len(seen) != len(want) {
		t.Fatalf("watcher saw %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestCell_WatcherMayTouchOtherCells(t *testing.T) {
	a := NewCell(0)
	b := NewCell(0)

	// Watchers run outside the cell's lock, so writing another cell (or even
	// reading this one) from a watcher must not deadlock.
	a.Watch(func(v int) {
		b.Set(v * 2)
		_ = a.Get()
	})

	a.Set(21)
	if got := b.Get(); got != 42 {
		t.Errorf("derived cell = %d, want 42", got)
	}
}

func TestCell_ConcurrentUpdates(t *testing.T) {
	c := NewCell(0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()

	if got := c.Get(); got != 100 {
		t.Errorf("Get() = %d after 100 concurrent increments, want 100", got)
	}
}
