package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// TokenReader is the slice of the token store the transport needs.
// Implemented by *tokenstore.Store.
type TokenReader interface {
	Token() string
	RefreshToken() string
	ExpiresAtTime() (time.Time, bool)
	RemoveToken()
}

// Refresher renews the access token. Implementations must coalesce
// concurrent calls into a single upstream request — the transport and the
// background scheduler share one refresher for exactly that reason.
// The oauth2.TokenSource contract is satisfied by the session package's
// implementation.
type Refresher interface {
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

// BearerTransport attaches the session's bearer token to outgoing requests
// and transparently recovers from exactly one authentication failure per
// request:
//
//  1. On a 401, re-read the credential triple from the store.
//  2. If a refresh token exists and the stored expiry has passed, refresh.
//     Success: retry the original request once with the new bearer and
//     return that response (even if it 401s again — no loop by construction).
//     Failure: clear tokens, report unauthorized, and return the refresh
//     error — not the original 401.
//  3. Otherwise (no refresh token, or a 401 despite an unexpired token —
//     inconsistent but possible): clear tokens, report unauthorized, and
//     return the original 401 untouched.
type BearerTransport struct {
	Base      http.RoundTripper // nil = http.DefaultTransport
	Store     TokenReader
	Refresher Refresher

	// OnUnauthorized runs whenever the transport gives up on the session.
	// The session controller hooks this to drop its cached profile and stop
	// the auto-refresh timer. May be nil.
	OnUnauthorized func()
}

func (t *BearerTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *BearerTransport) markUnauthorized() {
	t.Store.RemoveToken()
	if t.OnUnauthorized != nil {
		t.OnUnauthorized()
	}
}

// RoundTrip implements http.RoundTripper. The incoming request is never
// mutated; both the initial send and the retry use clones.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	authed := req.Clone(req.Context())
	if token := t.Store.Token(); token != "" {
		authed.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base().RoundTrip(authed)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// Re-read current state: another actor may have refreshed or logged out
	// between dispatch and the 401 arriving.
	token := t.Store.Token()
	refresh := t.Store.RefreshToken()
	expiry, hasExpiry := t.Store.ExpiresAtTime()

	canRefresh := token != "" && refresh != "" && hasExpiry && !time.Now().Before(expiry)
	if !canRefresh || !retryable(req) {
		t.markUnauthorized()
		return resp, nil
	}

	fresh, refreshErr := t.Refresher.Refresh(req.Context())
	if refreshErr != nil {
		resp.Body.Close()
		t.markUnauthorized()
		return nil, refreshErr
	}

	// One retry, with the renewed bearer. The first response is dead now.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	retry := req.Clone(req.Context())
	if req.Body != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+fresh.AccessToken)

	return t.base().RoundTrip(retry)
}

// retryable reports whether the request body can be replayed. Requests built
// by this package always can (bytes-backed bodies get GetBody for free);
// streaming bodies cannot, and for those the original 401 stands.
func retryable(req *http.Request) bool {
	return req.Body == nil || req.GetBody != nil
}
