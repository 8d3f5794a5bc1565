package http

import (
	"net/http"
	"time"

	"github.com/Titansingh/ProfessionalBackend/internal/domain"
	"github.com/Titansingh/ProfessionalBackend/pkg/middleware"
)

// RefreshTokenCookie is the cookie carrying the refresh token.
const RefreshTokenCookie = "refreshToken"

// CookieWriter sets and clears the auth cookies on responses. Secure is
// disabled only for plain-HTTP development setups.
type CookieWriter struct {
	secure        bool
	accessMaxAge  time.Duration
	refreshMaxAge time.Duration
}

// NewCookieWriter builds a CookieWriter whose cookie lifetimes track the
// token expiries.
func NewCookieWriter(secure bool, accessExpiry, refreshExpiry time.Duration) *CookieWriter {
	return &CookieWriter{
		secure:        secure,
		accessMaxAge:  accessExpiry,
		refreshMaxAge: refreshExpiry,
	}
}

// Set writes both auth cookies for the token pair.
func (c *CookieWriter) Set(w http.ResponseWriter, tokens *domain.TokenPair) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, tokens.AccessToken, c.accessMaxAge))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, tokens.RefreshToken, c.refreshMaxAge))
}

// Clear expires both auth cookies.
func (c *CookieWriter) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, "", -time.Second))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, "", -time.Second))
}

func (c *CookieWriter) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
