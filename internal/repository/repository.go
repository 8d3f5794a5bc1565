package repository

import (
	"context"

	"github.com/Titansingh/ProfessionalBackend/internal/domain"
)

// UserRepository defines the interface for account persistence operations.
// Reads never return credential fields to callers that do not need them; the
// domain.User JSON view is scrubbed regardless.
type UserRepository interface {
	// Create inserts a new user. Duplicate username or email fails with a
	// Conflict error rather than overwriting.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByIdentifier retrieves a user whose username or email equals the
	// given normalized identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)

	// Update modifies profile fields (username, email, full name, image URLs).
	// Credential fields are changed only through the dedicated methods below.
	Update(ctx context.Context, user *domain.User) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetRefreshToken stores the hash of the newly issued refresh token,
	// overwriting any prior value. This is the sole revocation mechanism for
	// earlier sessions.
	SetRefreshToken(ctx context.Context, id, tokenHash string) error

	// RotateRefreshToken atomically replaces oldHash with newHash. If the
	// stored hash no longer equals oldHash (concurrent rotation, logout, or
	// token reuse), no row is updated and ErrNotFound is returned.
	RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) error

	// ClearRefreshToken removes the stored refresh token. Clearing an already
	// cleared token is a no-op success.
	ClearRefreshToken(ctx context.Context, id string) error
}

// SubscriptionRepository defines read operations over channel subscriptions.
type SubscriptionRepository interface {
	// GetChannelProfile returns the public channel view for the given
	// normalized username, with subscription counts and, when viewerID is
	// non-empty, whether that viewer is subscribed.
	GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)
}
