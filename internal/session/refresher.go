package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/sakif/blog-edge/internal/api"
	"github.com/sakif/blog-edge/internal/apperror"
	"github.com/sakif/blog-edge/internal/tokenstore"
)

// Refresher renews the access token through /auth/refresh.
//
// There is exactly one Refresher per session and every actor that wants a
// fresh token — the background scheduler, the 401 recovery in the bearer
// transport — goes through it. Concurrent callers are coalesced onto a
// single upstream request via singleflight: when the scheduler's tick and a
// 401 land at the same moment, the platform sees one refresh call and both
// callers get its result. Two independent refresh actors would otherwise
// race and storm the platform with redundant refreshes.
//
// Refresher also implements oauth2.TokenSource.
type Refresher struct {
	client *api.Client // must not route through the bearer transport
	store  *tokenstore.Store
	logger *slog.Logger
	group  singleflight.Group
}

var _ oauth2.TokenSource = (*Refresher)(nil)
var _ api.Refresher = (*Refresher)(nil)

// NewRefresher creates a Refresher. client must be the public (unauthed)
// API client — routing the refresh call through the bearer transport would
// recurse on 401.
func NewRefresher(client *api.Client, store *tokenstore.Store, logger *slog.Logger) *Refresher {
	return &Refresher{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Refresh renews the access token, persisting the new token and expiry.
// The stored refresh token is left untouched — the platform does not rotate
// it. Returns apperror.ErrUnauthorized when no refresh token is stored.
func (r *Refresher) Refresh(ctx context.Context) (*oauth2.Token, error) {
	v, err, _ := r.group.Do("refresh", func() (any, error) {
		return r.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func (r *Refresher) refresh(ctx context.Context) (*oauth2.Token, error) {
	refreshToken := r.store.RefreshToken()
	if refreshToken == "" {
		return nil, apperror.Unauthorized("no refresh token available")
	}

	res, err := r.client.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	expiry := resolveExpiry(res.AccessToken, res.ExpiresAt, res.ExpiresIn)

	r.store.SetToken(res.AccessToken)
	if !expiry.IsZero() {
		r.store.SetExpiresAtTime(expiry)
	}

	r.logger.Info("session: access token refreshed",
		slog.Time("expiry", expiry),
	)

	return &oauth2.Token{
		AccessToken:  res.AccessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}, nil
}

// Token implements oauth2.TokenSource: return the stored token while it is
// still valid, refresh otherwise.
func (r *Refresher) Token() (*oauth2.Token, error) {
	if access := r.store.Token(); access != "" {
		tok := &oauth2.Token{
			AccessToken:  access,
			RefreshToken: r.store.RefreshToken(),
			TokenType:    "Bearer",
		}
		expiry, ok := r.store.ExpiresAtTime()
		if !ok {
			// No expiry on record: treat as valid and let a 401 sort it out.
			return tok, nil
		}
		tok.Expiry = expiry
		if tok.Valid() {
			return tok, nil
		}
	}
	return r.Refresh(context.Background())
}

// resolveExpiry picks the expiry for a freshly issued access token:
// the server's absolute expiresAt (unix ms) wins, then relative expiresIn
// (seconds), then the token's own JWT exp claim. Zero time means unknown.
func resolveExpiry(accessToken string, expiresAtMillis, expiresInSeconds int64) time.Time {
	if expiresAtMillis > 0 {
		return time.UnixMilli(expiresAtMillis)
	}
	if expiresInSeconds > 0 {
		return time.Now().Add(time.Duration(expiresInSeconds) * time.Second)
	}
	return expiryFromClaims(accessToken)
}

// expiryFromClaims reads the exp claim without verifying the signature.
// The edge never trusts the token's contents for authorization — that is
// the platform's job — it only needs the expiry to schedule refreshes.
func expiryFromClaims(accessToken string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
