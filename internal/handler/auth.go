// Package handler implements the edge's HTTP routes. Handlers stay thin:
// parse the request, look up the caller's session, delegate to the session
// controller or the collection state, write JSON.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/blog-edge/internal/apperror"
	"github.com/sakif/blog-edge/internal/middleware"
	"github.com/sakif/blog-edge/internal/model"
	"github.com/sakif/blog-edge/internal/session"
)

// AuthHandler serves login, registration, logout, and profile routes.
type AuthHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(sessions *session.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger}
}

func (h *AuthHandler) handle(r *http.Request) *session.Handle {
	return h.sessions.Get(middleware.SID(r.Context()))
}

// sessionView is what the edge tells the browser about its session.
// Tokens never appear here — they stay server-side.
type sessionView struct {
	Authenticated bool           `json:"authenticated"`
	Profile       *model.Profile `json:"profile,omitempty"`
}

// HandleLogin logs the session in with platform credentials.
// POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if creds.UserNameOrEmail == "" || creds.Password == "" {
		writeError(w, apperror.ValidationFailed("credentials", "username/email and password are required"))
		return
	}

	ctrl := h.handle(r).Ctrl
	profile, err := ctrl.Authenticate(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionView{Authenticated: true, Profile: profile})
}

// HandleRegister creates an account and enters the new session.
// POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.UserName == "" || req.Email == "" || req.Password == "" {
		writeError(w, apperror.ValidationFailed("registration", "userName, email, and password are required"))
		return
	}

	ctrl := h.handle(r).Ctrl
	profile, err := ctrl.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionView{Authenticated: true, Profile: profile})
}

// HandleLogout ends the session. Always succeeds locally, whatever the
// platform said.
// POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctrl := h.handle(r).Ctrl
	ctrl.Logout(r.Context())
	writeJSON(w, http.StatusOK, sessionView{Authenticated: false})
}

// HandleSession reports the current auth state without forcing a profile
// fetch.
// GET /auth/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctrl := h.handle(r).Ctrl
	writeJSON(w, http.StatusOK, sessionView{
		Authenticated: ctrl.IsAuthenticated(),
		Profile:       ctrl.CurrentProfile(),
	})
}

// HandleProfile returns the session's profile, fetching it lazily on first
// use.
// GET /auth/profile
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctrl := h.handle(r).Ctrl
	if !ctrl.IsAuthenticated() {
		writeError(w, apperror.Unauthorized("not logged in"))
		return
	}

	profile, err := ctrl.Profile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdateProfile applies a partial profile update.
// PATCH /users/{id}
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch model.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	ctrl := h.handle(r).Ctrl
	updated, err := ctrl.UpdateProfile(r.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleUploadProfileImage relays a multipart profile image upload.
// POST /upload/profile
func (h *AuthHandler) HandleUploadProfileImage(w http.ResponseWriter, r *http.Request) {
	h.relayUpload(w, r, func(hd *session.Handle) uploadFunc {
		return hd.Ctrl.API().UploadProfileImage
	})
}

// HandleUploadCoverImage relays a multipart cover image upload.
// POST /upload/cover
func (h *AuthHandler) HandleUploadCoverImage(w http.ResponseWriter, r *http.Request) {
	h.relayUpload(w, r, func(hd *session.Handle) uploadFunc {
		return hd.Ctrl.API().UploadCoverImage
	})
}

type uploadFunc func(ctx context.Context, filename string, r io.Reader) (*model.UploadResponse, error)

func (h *AuthHandler) relayUpload(w http.ResponseWriter, r *http.Request, pick func(*session.Handle) uploadFunc) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "multipart field 'file' is required"))
		return
	}
	defer file.Close()

	res, err := pick(h.handle(r))(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
