package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Titansingh/ProfessionalBackend/internal/auth"
	"github.com/Titansingh/ProfessionalBackend/internal/domain"
	"github.com/Titansingh/ProfessionalBackend/internal/event"
	"github.com/Titansingh/ProfessionalBackend/internal/limiter"
	"github.com/Titansingh/ProfessionalBackend/internal/repository"
	"github.com/Titansingh/ProfessionalBackend/internal/storage"
	apperrors "github.com/Titansingh/ProfessionalBackend/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// UserService implements the business logic for account and auth operations.
type UserService struct {
	userRepo   repository.UserRepository
	subRepo    repository.SubscriptionRepository
	jwtManager *auth.JWTManager
	storage    storage.Storage
	limiter    limiter.LoginLimiter
	producer   *event.Producer
	logger     *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	jwtManager *auth.JWTManager,
	store storage.Storage,
	loginLimiter limiter.LoginLimiter,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		subRepo:    subRepo,
		jwtManager: jwtManager,
		storage:    store,
		limiter:    loginLimiter,
		producer:   producer,
		logger:     logger,
	}
}

// --- Input types ---

// ImageUpload carries an image file received from a client.
type ImageUpload struct {
	ContentType string
	Size        int64
	Data        io.Reader
}

// RegisterInput holds the parameters for registering a new account.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     *ImageUpload
	CoverImage *ImageUpload
}

// LoginInput holds the parameters for logging in. Identifier is a username
// or an email.
type LoginInput struct {
	Identifier string
	Password   string
}

// UpdateAccountInput holds the parameters for updating account details.
type UpdateAccountInput struct {
	FullName *string
	Email    *string
}

// --- Auth operations ---

// Register creates a new account. Usernames and emails are lowercased and
// trimmed before storage so case variants collide. Image uploads are best
// effort here: a failed upload leaves the URL empty rather than failing the
// registration.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := domain.NormalizeIdentifier(input.Username)
	email := domain.NormalizeIdentifier(input.Email)

	if username == "" {
		return nil, apperrors.InvalidInput("username is required")
	}
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.FullName == "" {
		return nil, apperrors.InvalidInput("full name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		FullName:     input.FullName,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	user.AvatarURL = s.uploadImage(ctx, "avatars", input.Avatar)
	user.CoverImageURL = s.uploadImage(ctx, "covers", input.CoverImage)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login authenticates by username or email plus password and issues a token
// pair. The refresh token replaces whatever session the account had before.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	identifier := domain.NormalizeIdentifier(input.Identifier)

	if identifier == "" {
		return nil, nil, apperrors.InvalidInput("username or email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	if err := s.limiter.Allow(ctx, identifier); err != nil {
		if errors.Is(err, limiter.ErrTooManyAttempts) {
			return nil, nil, apperrors.Unauthorized("too many login attempts, try again later")
		}
		return nil, nil, fmt.Errorf("login limiter: %w", err)
	}

	user, err := s.userRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NotFound("user", identifier)
		}
		return nil, nil, fmt.Errorf("get user for login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid user credentials")
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, tokens, nil
}

// Refresh exchanges a valid refresh token for a new pair. The stored token
// is swapped atomically, so of two concurrent refreshes with the same token
// exactly one succeeds and the other is rejected.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.Unauthorized("refresh token is required")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("get user for refresh: %w", err)
	}

	if !user.HasActiveSession() {
		return nil, apperrors.Unauthorized("refresh token is expired or used")
	}

	newRefreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("generate refresh token: %w", err))
	}

	err = s.userRepo.RotateRefreshToken(ctx, user.ID, hashToken(refreshToken), hashToken(newRefreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("refresh token is expired or used")
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.FullName, user.Email)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("generate access token: %w", err))
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// Logout discards the account's stored refresh token. Logging out an account
// with no session is not an error.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
	)

	return nil
}

// ChangePassword verifies the old password and replaces it. The current
// session stays valid: the stored refresh token is untouched.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" {
		return apperrors.InvalidInput("old password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperrors.Unauthorized("invalid old password")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.producer.PublishUserPasswordChanged(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// Authenticate resolves an access token into its account. Every failure
// mode, from a malformed token to a deleted account, collapses into a single
// unauthenticated error so callers cannot probe token state.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid access token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid access token")
	}

	return user, nil
}

// --- Profile operations ---

// GetProfile retrieves an account by its ID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// UpdateAccount updates the account's full name and/or email.
func (s *UserService) UpdateAccount(ctx context.Context, userID string, input UpdateAccountInput) (*domain.User, error) {
	if input.FullName == nil && input.Email == nil {
		return nil, apperrors.InvalidInput("at least one of full name or email is required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.FullName != nil {
		if *input.FullName == "" {
			return nil, apperrors.InvalidInput("full name must not be empty")
		}
		user.FullName = *input.FullName
	}

	if input.Email != nil {
		email := domain.NormalizeIdentifier(*input.Email)
		if email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		user.Email = email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account details updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// UpdateAvatar replaces the account's avatar image. Unlike registration, a
// failed upload here fails the operation.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, upload *ImageUpload) (*domain.User, error) {
	return s.updateImage(ctx, userID, "avatars", "avatar", upload)
}

// UpdateCoverImage replaces the account's cover image.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID string, upload *ImageUpload) (*domain.User, error) {
	return s.updateImage(ctx, userID, "covers", "cover image", upload)
}

func (s *UserService) updateImage(ctx context.Context, userID, prefix, kind string, upload *ImageUpload) (*domain.User, error) {
	if upload == nil {
		return nil, apperrors.InvalidInput(kind + " file is required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for %s update: %w", kind, err)
	}

	url, err := s.storage.Put(ctx, &storage.Object{
		Key:         fmt.Sprintf("%s/%s", prefix, uuid.New()),
		ContentType: upload.ContentType,
		Size:        upload.Size,
		Body:        upload.Data,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "image upload failed",
			slog.String("user_id", userID),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.InvalidInput("error while uploading " + kind)
	}

	switch prefix {
	case "avatars":
		user.AvatarURL = url
	default:
		user.CoverImageURL = url
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user %s: %w", kind, err)
	}

	s.logger.InfoContext(ctx, "user image updated",
		slog.String("user_id", user.ID),
		slog.String("kind", kind),
	)

	return user, nil
}

// --- Channel operations ---

// ChannelProfile returns the public channel view of a user. viewerID may be
// empty for anonymous requests.
func (s *UserService) ChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	username = domain.NormalizeIdentifier(username)
	if username == "" {
		return nil, apperrors.InvalidInput("username is required")
	}

	profile, err := s.subRepo.GetChannelProfile(ctx, username, viewerID)
	if err != nil {
		return nil, fmt.Errorf("get channel profile: %w", err)
	}

	return profile, nil
}

// --- Helpers ---

// generateTokenPair mints an access and refresh token and persists the
// refresh token hash as the account's single active session.
func (s *UserService) generateTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.FullName, user.Email)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("generate access token: %w", err))
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("generate refresh token: %w", err))
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, hashToken(refreshToken)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// uploadImage stores an optional image and returns its URL, or "" when the
// upload is absent or fails.
func (s *UserService) uploadImage(ctx context.Context, prefix string, upload *ImageUpload) string {
	if upload == nil {
		return ""
	}

	url, err := s.storage.Put(ctx, &storage.Object{
		Key:         fmt.Sprintf("%s/%s", prefix, uuid.New()),
		ContentType: upload.ContentType,
		Size:        upload.Size,
		Body:        upload.Data,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "image upload failed, continuing without it",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		return ""
	}

	return url
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// validatePassword checks the password length. No character-class rules:
// length is the only requirement enforced server side.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}
