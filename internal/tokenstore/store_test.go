package tokenstore

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

// fakeKV is an in-memory KV with optional error injection.
type fakeKV struct {
	mu   sync.Mutex
	data map[string]string // "sid/key" -> value
	fail bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, sid, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", false, errors.New("kv unavailable")
	}
	v, ok := f.data[sid+"/"+key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, sid, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("kv unavailable")
	}
	f.data[sid+"/"+key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, sid, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("kv unavailable")
	}
	delete(f.data, sid+"/"+key)
	return nil
}

func (f *fakeKV) DeleteAll(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("kv unavailable")
	}
	for k := range f.data {
		if len(k) > len(sid) && k[:len(sid)+1] == sid+"/" {
			delete(f.data, k)
		}
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStore_RoundTrip(t *testing.T) {
	s := New(newFakeKV(), "sid-1", testLogger())

	s.SetToken("access-1")
	if got := s.Token(); got != "access-1" {
		t.Errorf("Token() = %q, want %q", got, "access-1")
	}

	s.RemoveToken()
	if got := s.Token(); got != "" {
		t.Errorf("Token() after RemoveToken = %q, want empty", got)
	}
}

func TestStore_RemoveTokenClearsTriple(t *testing.T) {
	s := New(newFakeKV(), "sid-1", testLogger())
	s.SetToken("a")
	s.SetRefreshToken("r")
	s.SetExpiresAt("12345")

	s.RemoveToken()

	if s.Token() != "" || s.RefreshToken() != "" || s.ExpiresAt() != "" {
		t.Errorf("RemoveToken should clear all three values, got (%q, %q, %q)",
			s.Token(), s.RefreshToken(), s.ExpiresAt())
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	kv := newFakeKV()

	first := New(kv, "sid-1", testLogger())
	first.SetToken("access-1")
	first.SetRefreshToken("refresh-1")
	first.SetExpiresAtTime(time.UnixMilli(1700000000000))

	// A new store over the same backend (edge restart) sees everything.
	second := New(kv, "sid-1", testLogger())
	if got := second.Token(); got != "access-1" {
		t.Errorf("Token() after reload = %q, want %q", got, "access-1")
	}
	if got := second.RefreshToken(); got != "refresh-1" {
		t.Errorf("RefreshToken() after reload = %q, want %q", got, "refresh-1")
	}
	expiry, ok := second.ExpiresAtTime()
	if !ok || !expiry.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("ExpiresAtTime() after reload = (%v, %v), want 1700000000000 ms", expiry, ok)
	}
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	kv := newFakeKV()
	a := New(kv, "sid-a", testLogger())
	b := New(kv, "sid-b", testLogger())

	a.SetToken("token-a")
	b.SetToken("token-b")
	a.Clear()

	if got := b.Token(); got != "token-b" {
		t.Errorf("clearing session a wiped session b: Token() = %q", got)
	}
}

func TestStore_MemoryOnlyMode(t *testing.T) {
	s := New(nil, "sid-1", testLogger())
	if s.Persistent() {
		t.Error("Persistent() = true with nil backend")
	}

	// Everything must keep working without durable storage.
	s.SetToken("a")
	s.SetRefreshToken("r")
	if s.Token() != "a" || s.RefreshToken() != "r" {
		t.Error("memory-only store should serve values from cells")
	}
	s.RemoveToken()
	s.Clear()
	if s.Token() != "" {
		t.Error("memory-only RemoveToken/Clear should work")
	}
}

func TestStore_BackendFailureDoesNotBreakReads(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, "sid-1", testLogger())

	kv.fail = true
	s.SetToken("still-cached")

	// Write to the backend failed (and was logged); the cell still serves.
	if got := s.Token(); got != "still-cached" {
		t.Errorf("Token() = %q, want value from cell despite backend failure", got)
	}
}

func TestStore_WatchToken(t *testing.T) {
	s := New(nil, "sid-1", testLogger())

	var seen []string
	cancel := s.WatchToken(func(v string) { seen = append(seen, v) })

	s.SetToken("one")
	s.RemoveToken()
	cancel()
	s.SetToken("after-cancel")

	want := []string{"one", ""}
	if len(seen) != len(want) {
		t.Fatalf("watcher saw %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("watcher event %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestStore_ExpiresAtTime(t *testing.T) {
	s := New(nil, "sid-1", testLogger())

	if _, ok := s.ExpiresAtTime(); ok {
		t.Error("ExpiresAtTime() ok = true with nothing stored")
	}

	s.SetExpiresAt("not-a-number")
	if _, ok := s.ExpiresAtTime(); ok {
		t.Error("ExpiresAtTime() ok = true for malformed value")
	}

	now := time.Now().Truncate(time.Millisecond)
	s.SetExpiresAtTime(now)
	got, ok := s.ExpiresAtTime()
	if !ok || !got.Equal(now) {
		t.Errorf("ExpiresAtTime() = (%v, %v), want (%v, true)", got, ok, now)
	}
}
