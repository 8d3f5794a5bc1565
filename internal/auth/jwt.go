package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification failures. Callers must be able to tell an expired token
// (client should refresh) apart from a malformed or forged one (client must
// re-authenticate).
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenNoSubject = errors.New("token missing subject claim")
)

// AccessClaims are the identity claims embedded in an access token.
type AccessClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the account id; everything else is looked up at
// exchange time.
type RefreshClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies access and refresh tokens. The two token
// kinds use separate secrets so that compromise of one cannot forge the other.
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	issuer        string
}

// NewJWTManager creates a JWT manager with distinct access and refresh secrets
// and their expiry durations.
func NewJWTManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return &JWTManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		issuer:        "account-service",
	}
}

// AccessExpiry returns the configured access token lifetime.
func (m *JWTManager) AccessExpiry() time.Duration { return m.accessExpiry }

// RefreshExpiry returns the configured refresh token lifetime.
func (m *JWTManager) RefreshExpiry() time.Duration { return m.refreshExpiry }

// GenerateAccessToken signs a short-lived token carrying the user's identity
// claims.
func (m *JWTManager) GenerateAccessToken(userID, username, fullName, email string) (string, error) {
	now := time.Now().UTC()
	claims := &AccessClaims{
		UserID:   userID,
		Username: username,
		FullName: fullName,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// GenerateRefreshToken signs a long-lived token carrying only the user id.
func (m *JWTManager) GenerateRefreshToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := &RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps every issued refresh token distinct, so rotation
			// always replaces the stored hash with a new value.
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshExpiry)),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and verifies an access token against the access
// secret, returning its claims.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenString, claims, m.accessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrTokenNoSubject
	}
	return claims, nil
}

// ValidateRefreshToken parses and verifies a refresh token against the refresh
// secret, returning its claims.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenString, claims, m.refreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrTokenNoSubject
	}
	return claims, nil
}

// parse verifies the signature and registered claims, mapping library errors
// onto the package sentinels.
func (m *JWTManager) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return ErrTokenInvalid
	}

	return nil
}
