package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Titansingh/ProfessionalBackend/internal/domain"
	"github.com/Titansingh/ProfessionalBackend/pkg/database"
	apperrors "github.com/Titansingh/ProfessionalBackend/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, full_name, password_hash, COALESCE(refresh_token_hash, ''), avatar_url, cover_image_url, created_at, updated_at`

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "CreateUser", query)
	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.FullName,
		u.PasswordHash,
		u.AvatarURL,
		u.CoverImageURL,
		u.CreatedAt,
		u.UpdatedAt,
	)
	end(err)
	if err != nil {
		if isUniqueViolation(err) {
			return conflictFor(err, u)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, "GetUserByID", query, id)
}

// GetByIdentifier retrieves a user by normalized username or email.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`
	return r.scanUser(ctx, "GetUserByIdentifier", query, identifier)
}

// Update modifies profile fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET username = $1, email = $2, full_name = $3, avatar_url = $4, cover_image_url = $5, updated_at = $6
		WHERE id = $7`

	ctx, end := database.TraceQuery(ctx, "UpdateUser", query)
	ct, err := r.db.Exec(ctx, query,
		u.Username,
		u.Email,
		u.FullName,
		u.AvatarURL,
		u.CoverImageURL,
		u.UpdatedAt,
		u.ID,
	)
	end(err)
	if err != nil {
		if isUniqueViolation(err) {
			return conflictFor(err, u)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "UpdateUserPassword", query)
	ct, err := r.db.Exec(ctx, query, passwordHash, time.Now().UTC(), id)
	end(err)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// SetRefreshToken stores the hash of the current refresh token, overwriting
// any prior value.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	query := `UPDATE users SET refresh_token_hash = $1, updated_at = $2 WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "SetRefreshToken", query)
	ct, err := r.db.Exec(ctx, query, tokenHash, time.Now().UTC(), id)
	end(err)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// RotateRefreshToken swaps oldHash for newHash in a single conditional update.
// When two refreshes race on the same stale token, only one write matches;
// the loser sees zero rows and gets ErrNotFound.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $1, updated_at = $2
		WHERE id = $3 AND refresh_token_hash = $4`

	ctx, end := database.TraceQuery(ctx, "RotateRefreshToken", query)
	ct, err := r.db.Exec(ctx, query, newHash, time.Now().UTC(), id, oldHash)
	end(err)
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// ClearRefreshToken removes the stored refresh token unconditionally. The
// update is idempotent: clearing an absent token still succeeds.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	query := `UPDATE users SET refresh_token_hash = NULL, updated_at = $1 WHERE id = $2`

	ctx, end := database.TraceQuery(ctx, "ClearRefreshToken", query)
	_, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	end(err)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	return nil
}

// scanUser executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, op, query string, args ...any) (*domain.User, error) {
	var u domain.User

	ctx, end := database.TraceQuery(ctx, op, query)
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.PasswordHash,
		&u.RefreshTokenHash,
		&u.AvatarURL,
		&u.CoverImageURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// conflictFor maps a unique violation onto the offending field by constraint
// name, falling back to username.
func conflictFor(err error, u *domain.User) error {
	msg := err.Error()
	if strings.Contains(msg, "users_email_key") {
		return apperrors.Conflict("user", "email", u.Email)
	}
	return apperrors.Conflict("user", "username", u.Username)
}
