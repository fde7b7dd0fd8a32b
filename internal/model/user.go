// Package model defines the data shapes exchanged with the blog platform API.
//
// These mirror the upstream wire format exactly — field names and JSON tags
// follow the API contract, not Go preference. Keeping the wire shapes in one
// package means the client, session, and handler layers all agree on what a
// Profile or Post looks like.
package model

// Credentials is the login request body. The platform accepts either a
// username or an email in the same field.
type Credentials struct {
	UserNameOrEmail string `json:"userNameOrEmail"`
	Password        string `json:"password"`
}

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	FullName string `json:"fullName"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Major    string `json:"major"`
}

// Profile is the authenticated user's account record.
// Loaded lazily after login and cached for the lifetime of the session.
type Profile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Image     string `json:"image,omitempty"`
	Headline  string `json:"headline,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// ProfilePatch is a partial profile update. Nil fields are omitted from the
// PATCH body, so the server only touches what the caller set.
type ProfilePatch struct {
	Nickname *string `json:"nickname,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Image    *string `json:"image,omitempty"`
	Headline *string `json:"headline,omitempty"`
}

// AuthResponse is returned by both /auth/login and /auth/register.
// ExpiresAt is unix milliseconds; ExpiresIn is seconds. Either may be zero —
// the session layer resolves whichever the server provided.
type AuthResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expiresIn"`
	ExpiresAt    int64   `json:"expiresAt"`
	User         Profile `json:"user"`
}

// RefreshResponse is returned by /auth/refresh. The refresh token itself is
// not rotated — only the access token and its expiry come back.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expiresIn"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// LogoutResponse is returned by /auth/logout.
type LogoutResponse struct {
	Success bool `json:"success"`
}

// UploadResponse is returned by the multipart upload endpoints.
type UploadResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
}
