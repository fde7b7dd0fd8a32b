package session

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/sakif/blog-edge/internal/collection"
	"github.com/sakif/blog-edge/internal/tokenstore"
)

// Handle bundles the per-session state the edge serves from: the session
// controller and its post collection.
type Handle struct {
	Ctrl  *Controller
	Posts *collection.State
}

// Manager owns one Handle per edge session ID, built lazily on first use.
// Nothing is process-wide: each browser session gets its own
// explicitly-constructed state with a clear teardown boundary (StopAll on
// shutdown).
type Manager struct {
	baseURL string
	kv      tokenstore.KV
	logger  *slog.Logger
	base    http.RoundTripper // test hook, nil in production

	mu       sync.Mutex
	sessions map[string]*Handle
}

// NewManager creates a Manager. kv may be nil, in which case token stores
// run memory-only and sessions do not survive an edge restart.
func NewManager(baseURL string, kv tokenstore.KV, logger *slog.Logger) *Manager {
	return &Manager{
		baseURL:  baseURL,
		kv:       kv,
		logger:   logger,
		sessions: make(map[string]*Handle),
	}
}

// Get returns the Handle for sid, constructing it on first sight. A
// returning browser whose tokens are still persisted comes back
// authenticated without re-logging in.
func (m *Manager) Get(sid string) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.sessions[sid]; ok {
		return h
	}

	store := tokenstore.New(m.kv, sid, m.logger)
	ctrl := NewController(Config{
		BaseURL: m.baseURL,
		Store:   store,
		Logger:  m.logger.With(slog.String("sid", sid)),
		Base:    m.base,
	})

	h := &Handle{
		Ctrl:  ctrl,
		Posts: collection.New(ctrl.API(), m.logger),
	}
	m.sessions[sid] = h
	return h
}

// StopAll cancels every session's auto-refresh timer. Called on shutdown
// so no goroutine outlives the server.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.sessions {
		h.Ctrl.AutoRefresh().Stop()
	}
}
