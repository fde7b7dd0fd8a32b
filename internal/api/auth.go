package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sakif/blog-edge/internal/model"
)

// Login exchanges credentials for a token pair and the user record.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &out, "Login failed"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. The response shape matches Login, so a fresh
// registration yields a usable session immediately.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &out, "Registration failed"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated by the platform.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.RefreshResponse, error) {
	body := struct {
		Token string `json:"token"`
	}{Token: refreshToken}

	var out model.RefreshResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, body, &out, "Token refresh failed"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context) (*model.LogoutResponse, error) {
	var out model.LogoutResponse
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, struct{}{}, &out, "Logout failed"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the authenticated user's account record.
func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	var out model.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, nil, &out, "Failed to load profile"); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile applies a partial update and returns the server's
// authoritative full record.
func (c *Client) UpdateProfile(ctx context.Context, id int64, patch model.ProfilePatch) (*model.Profile, error) {
	var out model.Profile
	path := fmt.Sprintf("/users/%d", id)
	if err := c.do(ctx, http.MethodPatch, path, nil, patch, &out, "Failed to update profile"); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadProfileImage uploads a profile picture (multipart, field "file").
func (c *Client) UploadProfileImage(ctx context.Context, filename string, r io.Reader) (*model.UploadResponse, error) {
	return c.upload(ctx, "/upload/profile", filename, r, "Failed to upload profile image")
}

// UploadCoverImage uploads a post cover image (multipart, field "file").
func (c *Client) UploadCoverImage(ctx context.Context, filename string, r io.Reader) (*model.UploadResponse, error) {
	return c.upload(ctx, "/upload/cover", filename, r, "Failed to upload cover image")
}
