package domain

import (
	"strings"
	"time"
)

// User represents a registered account in the system.
//
// PasswordHash and RefreshTokenHash are never serialized; every response view
// of a user is scrubbed of credentials by construction.
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	PasswordHash     string    `json:"-"`
	RefreshTokenHash string    `json:"-"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	CoverImageURL    string    `json:"cover_image_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasActiveSession reports whether a refresh token is currently persisted for
// the user. An empty hash means no live session.
func (u *User) HasActiveSession() bool {
	return u.RefreshTokenHash != ""
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NormalizeIdentifier lowercases and trims a username or email so that
// uniqueness and lookups are case-insensitive. "Alice" and "alice" refer to
// the same account.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
