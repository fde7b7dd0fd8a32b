package middleware

import (
	"context"
	"net/http"

	"github.com/rs/xid"
)

// SessionCookie is the cookie carrying the edge session ID.
const SessionCookie = "edge_sid"

type contextKey string

const sidKey contextKey = "edge_sid"

// Session assigns each browser a stable session ID via an HttpOnly cookie
// and puts it on the request context. All per-session state (tokens,
// cached profile, collection state) is keyed by this ID — the browser
// never sees a platform token.
func Session(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string
			if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
				sid = c.Value
			} else {
				sid = xid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sidKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SID returns the session ID set by Session, or "" when the middleware did
// not run.
func SID(ctx context.Context) string {
	sid, _ := ctx.Value(sidKey).(string)
	return sid
}
