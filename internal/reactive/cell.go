// Package reactive provides a minimal observable value container: a
// thread-safe cell whose watchers are invoked on every write.
//
// Derived values are plain functions over cells, and orchestration lives in
// the callers rather than in watcher callbacks. Watchers exist so that
// derived state (is-authenticated tracking token presence, say) stays
// consistent without polling.
package reactive

import "sync"

// Cell holds a value of type T and notifies registered watchers on Set.
// The zero value is not usable; create cells with NewCell.
type Cell[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID int
	subs   map[int]func(T)
}

// NewCell returns a Cell initialised to v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{
		value: v,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set stores v and invokes every watcher with the new value.
// Watchers run synchronously on the calling goroutine, outside the lock, so
// a watcher may read or write other cells without deadlocking.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	watchers := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		watchers = append(watchers, fn)
	}
	c.mu.Unlock()

	for _, fn := range watchers {
		fn(v)
	}
}

// Update applies f to the current value and stores the result, notifying
// watchers. The read-modify-write is atomic with respect to other Updates.
func (c *Cell[T]) Update(f func(T) T) {
	c.mu.Lock()
	c.value = f(c.value)
	v := c.value
	watchers := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		watchers = append(watchers, fn)
	}
	c.mu.Unlock()

	for _, fn := range watchers {
		fn(v)
	}
}

// Watch registers fn to be called on every subsequent Set/Update.
// The returned cancel function removes the watcher; calling it more than
// once is safe.
func (c *Cell[T]) Watch(fn func(T)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}
