// Package session owns the authenticated-session lifecycle for one browser
// session at the edge: login and logout transitions, the cached profile,
// proactive token refresh, and the coalesced refresh operation shared with
// the HTTP transport.
//
// STATE MACHINE:
//
//	Anonymous → Authenticated → Anonymous
//
// "Authenticated" is never an independent flag — it is derived from the
// presence of an access token in the store, always. Logout and an
// irrecoverable 401 both land back in Anonymous with the profile cleared.
//
// Orchestration is explicit: Login loads the profile when absent, and
// nothing loads it as a hidden side effect of some other state change.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sakif/blog-edge/internal/api"
	"github.com/sakif/blog-edge/internal/apperror"
	"github.com/sakif/blog-edge/internal/model"
	"github.com/sakif/blog-edge/internal/reactive"
	"github.com/sakif/blog-edge/internal/tokenstore"
)

// Config carries everything a Controller needs.
type Config struct {
	BaseURL string
	Store   *tokenstore.Store
	Logger  *slog.Logger

	// Base overrides the transport under the bearer layer. Tests use this;
	// production leaves it nil for http.DefaultTransport.
	Base http.RoundTripper
}

// Controller drives one session's auth state.
type Controller struct {
	store     *tokenstore.Store
	public    *api.Client // no bearer: login, register, refresh
	authed    *api.Client // bearer transport with 401 recovery
	refresher *Refresher
	auto      *AutoRefresh
	logger    *slog.Logger

	isAuthed *reactive.Cell[bool]
	profile  *reactive.Cell[*model.Profile]

	mu sync.Mutex // serialises profile loads
}

// NewController wires the session graph: public client → refresher →
// bearer transport → authed client → scheduler. If the store already holds
// a token (a returning browser after an edge restart), auto-refresh starts
// immediately.
func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		store:    cfg.Store,
		logger:   logger,
		isAuthed: reactive.NewCell(cfg.Store.Token() != ""),
		profile:  reactive.NewCell[*model.Profile](nil),
	}

	c.public = api.New(cfg.BaseURL, api.WithLogger(logger))
	c.refresher = NewRefresher(c.public, cfg.Store, logger)

	transport := &api.BearerTransport{
		Base:           cfg.Base,
		Store:          cfg.Store,
		Refresher:      c.refresher,
		OnUnauthorized: c.handleUnauthorized,
	}
	c.authed = api.New(cfg.BaseURL,
		api.WithHTTPClient(&http.Client{Transport: transport, Timeout: 30 * time.Second}),
		api.WithLogger(logger),
	)

	c.auto = NewAutoRefresh(cfg.Store, c.refresher, logger, func() {
		c.Logout(context.Background())
	})

	// isAuthenticated is derived state: it tracks token presence and is
	// not settable on its own.
	cfg.Store.WatchToken(func(token string) {
		c.isAuthed.Set(token != "")
	})

	if cfg.Store.Token() != "" {
		c.auto.Start()
	}

	return c
}

// IsAuthenticated reports whether the session holds an access token.
func (c *Controller) IsAuthenticated() bool { return c.isAuthed.Get() }

// WatchAuthenticated registers fn for auth-state changes.
func (c *Controller) WatchAuthenticated(fn func(bool)) (cancel func()) {
	return c.isAuthed.Watch(fn)
}

// CurrentProfile returns the cached profile, or nil when none is loaded.
func (c *Controller) CurrentProfile() *model.Profile { return c.profile.Get() }

// WatchProfile registers fn for profile changes.
func (c *Controller) WatchProfile(fn func(*model.Profile)) (cancel func()) {
	return c.profile.Watch(fn)
}

// API returns the authenticated client (bearer + 401 recovery). The
// collection layer issues all post requests through this.
func (c *Controller) API() *api.Client { return c.authed }

// Public returns the unauthenticated client.
func (c *Controller) Public() *api.Client { return c.public }

// Login transitions to Authenticated. It does not store tokens — the
// caller must have written them to the token store already. It arms the
// auto-refresh timer and loads the profile when none is cached; a failed
// profile load is logged, not fatal (the session is still authenticated).
func (c *Controller) Login(ctx context.Context) {
	c.auto.Start()
	if c.profile.Get() == nil {
		if _, err := c.Profile(ctx); err != nil {
			c.logger.Error("session: loading profile after login",
				slog.String("error", err.Error()),
			)
		}
	}
}

// Authenticate performs the full credential login: exchange credentials,
// persist the token triple, cache the returned user, start auto-refresh.
func (c *Controller) Authenticate(ctx context.Context, creds model.Credentials) (*model.Profile, error) {
	res, err := c.public.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	c.applyAuth(res)
	c.Login(ctx)
	return c.profile.Get(), nil
}

// Register creates an account and enters the session it returns.
func (c *Controller) Register(ctx context.Context, req model.RegisterRequest) (*model.Profile, error) {
	res, err := c.public.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	c.applyAuth(res)
	c.Login(ctx)
	return c.profile.Get(), nil
}

// applyAuth persists a login/register response: token triple into the
// store, user record into the profile cache.
func (c *Controller) applyAuth(res *model.AuthResponse) {
	c.store.SetToken(res.AccessToken)
	c.store.SetRefreshToken(res.RefreshToken)
	if expiry := resolveExpiry(res.AccessToken, res.ExpiresAt, res.ExpiresIn); !expiry.IsZero() {
		c.store.SetExpiresAtTime(expiry)
	}
	user := res.User
	c.profile.Set(&user)
}

// Logout transitions to Anonymous: the timer stops, the platform is told
// (best effort), and tokens and profile are dropped. Whatever the upstream
// call does, the local session always ends Anonymous.
func (c *Controller) Logout(ctx context.Context) {
	c.auto.Stop()

	if c.store.Token() != "" {
		if _, err := c.authed.Logout(ctx); err != nil {
			c.logger.Warn("session: upstream logout failed",
				slog.String("error", err.Error()),
			)
		}
	}

	c.store.Clear()
	c.profile.Set(nil)
}

// Profile returns the cached profile, fetching it on first use. A fetch
// failure clears the cache and returns the error; the caller decides what
// "no profile" means (not logged in vs. transient network failure — the
// upstream status on the error is the only way to tell them apart).
func (c *Controller) Profile(ctx context.Context) (*model.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p := c.profile.Get(); p != nil {
		return p, nil
	}

	p, err := c.authed.Profile(ctx)
	if err != nil {
		c.profile.Set(nil)
		c.logger.Error("session: fetching profile",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	c.profile.Set(p)
	return p, nil
}

// InvalidateProfile drops the cached profile so the next Profile call
// refetches it.
func (c *Controller) InvalidateProfile() {
	c.profile.Set(nil)
}

// UpdateProfile applies a partial update. It is a precondition violation to
// call this before a profile is loaded — the error propagates, it is not
// swallowed into a signal. On success the cache is replaced wholesale with
// the server's authoritative response; there is no local merge.
func (c *Controller) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (*model.Profile, error) {
	current := c.profile.Get()
	if current == nil {
		return nil, apperror.Precondition("profile must be loaded before it can be updated")
	}

	updated, err := c.authed.UpdateProfile(ctx, current.ID, patch)
	if err != nil {
		return nil, err
	}
	c.profile.Set(updated)
	return updated, nil
}

// Refresher exposes the coalesced refresh operation.
func (c *Controller) Refresher() *Refresher { return c.refresher }

// AutoRefresh exposes the scheduler (Stop on shutdown, tests).
func (c *Controller) AutoRefresh() *AutoRefresh { return c.auto }

// Store exposes the session's token store.
func (c *Controller) Store() *tokenstore.Store { return c.store }

// handleUnauthorized runs when the bearer transport gives up on the
// session (refresh failed or was impossible). The transport has already
// cleared the tokens; drop the derived state that depended on them.
func (c *Controller) handleUnauthorized() {
	c.auto.Stop()
	c.profile.Set(nil)
}
