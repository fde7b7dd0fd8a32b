// Package tokenstore persists the credential triple for one edge session:
// access token, refresh token, and expiry.
//
// The store is write-through: every setter updates an in-memory observable
// cell AND the durable backend, so watchers see changes without re-querying
// storage. Reads are always served from the cells — after construction the
// backend is only ever written.
//
// The backend may be nil. That is the explicit "no persistent storage here"
// capability flag: the store then runs memory-only and every operation still
// works, it just doesn't survive a restart. Backend write failures are
// logged and otherwise ignored; the cells remain authoritative either way.
package tokenstore

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/sakif/blog-edge/internal/reactive"
)

// Storage keys: three string values under these names, expiry as unix
// milliseconds.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyExpiresAt    = "expiresAt"
)

// KV is the durable backend. Implementations must tolerate concurrent use.
type KV interface {
	Get(ctx context.Context, sessionID, key string) (value string, ok bool, err error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID, key string) error
	DeleteAll(ctx context.Context, sessionID string) error
}

// Store holds the tokens for a single session ID.
type Store struct {
	kv        KV // nil = memory-only mode
	sessionID string
	logger    *slog.Logger

	token   *reactive.Cell[string]
	refresh *reactive.Cell[string]
	expires *reactive.Cell[string]
}

// New creates a Store for sessionID, loading any persisted values from kv.
// Pass a nil kv to run memory-only (e.g. in environments without durable
// storage, or in tests).
func New(kv KV, sessionID string, logger *slog.Logger) *Store {
	s := &Store{
		kv:        kv,
		sessionID: sessionID,
		logger:    logger,
		token:     reactive.NewCell(""),
		refresh:   reactive.NewCell(""),
		expires:   reactive.NewCell(""),
	}
	if kv != nil {
		s.token.Set(s.load(KeyToken))
		s.refresh.Set(s.load(KeyRefreshToken))
		s.expires.Set(s.load(KeyExpiresAt))
	}
	return s
}

// Persistent reports whether the store is backed by durable storage.
func (s *Store) Persistent() bool { return s.kv != nil }

// SessionID returns the session this store is bound to.
func (s *Store) SessionID() string { return s.sessionID }

func (s *Store) load(key string) string {
	v, ok, err := s.kv.Get(context.Background(), s.sessionID, key)
	if err != nil {
		s.logger.Error("tokenstore: reading persisted value",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (s *Store) persist(key, value string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(context.Background(), s.sessionID, key, value); err != nil {
		s.logger.Error("tokenstore: persisting value",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) unpersist(key string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Delete(context.Background(), s.sessionID, key); err != nil {
		s.logger.Error("tokenstore: deleting value",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Token returns the current access token, or "" when anonymous.
func (s *Store) Token() string { return s.token.Get() }

// RefreshToken returns the current refresh token, or "".
func (s *Store) RefreshToken() string { return s.refresh.Get() }

// ExpiresAt returns the raw stored expiry (unix milliseconds as a string),
// or "" when unknown.
func (s *Store) ExpiresAt() string { return s.expires.Get() }

// ExpiresAtTime parses the stored expiry. ok is false when no usable expiry
// is stored.
func (s *Store) ExpiresAtTime() (t time.Time, ok bool) {
	raw := s.expires.Get()
	if raw == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// SetToken stores the access token.
func (s *Store) SetToken(v string) {
	s.token.Set(v)
	s.persist(KeyToken, v)
}

// SetRefreshToken stores the refresh token.
func (s *Store) SetRefreshToken(v string) {
	s.refresh.Set(v)
	s.persist(KeyRefreshToken, v)
}

// SetExpiresAt stores a raw expiry string (unix milliseconds).
func (s *Store) SetExpiresAt(v string) {
	s.expires.Set(v)
	s.persist(KeyExpiresAt, v)
}

// SetExpiresAtTime stores t as the expiry.
func (s *Store) SetExpiresAtTime(t time.Time) {
	s.SetExpiresAt(strconv.FormatInt(t.UnixMilli(), 10))
}

// RemoveToken clears the full credential triple. A single "remove" always
// drops all three values together: a dangling refresh token with no access
// token is never a valid state.
func (s *Store) RemoveToken() {
	s.token.Set("")
	s.refresh.Set("")
	s.expires.Set("")
	s.unpersist(KeyToken)
	s.unpersist(KeyRefreshToken)
	s.unpersist(KeyExpiresAt)
}

// Clear wipes everything stored for this session.
func (s *Store) Clear() {
	s.token.Set("")
	s.refresh.Set("")
	s.expires.Set("")
	if s.kv == nil {
		return
	}
	if err := s.kv.DeleteAll(context.Background(), s.sessionID); err != nil {
		s.logger.Error("tokenstore: clearing session",
			slog.String("sessionID", s.sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// WatchToken registers fn to run whenever the access token changes.
func (s *Store) WatchToken(fn func(string)) (cancel func()) {
	return s.token.Watch(fn)
}
