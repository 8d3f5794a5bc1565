package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Titansingh/ProfessionalBackend/internal/auth"
	"github.com/Titansingh/ProfessionalBackend/internal/domain"
	"github.com/Titansingh/ProfessionalBackend/internal/event"
	"github.com/Titansingh/ProfessionalBackend/internal/limiter"
	"github.com/Titansingh/ProfessionalBackend/internal/service"
	"github.com/Titansingh/ProfessionalBackend/internal/storage/memory"
	apperrors "github.com/Titansingh/ProfessionalBackend/pkg/errors"
	"github.com/Titansingh/ProfessionalBackend/pkg/health"
	"github.com/Titansingh/ProfessionalBackend/pkg/httputil"
	pkgkafka "github.com/Titansingh/ProfessionalBackend/pkg/kafka"
	"github.com/Titansingh/ProfessionalBackend/pkg/middleware"
)

// ============================================================================
// Mock repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *mockUserRepo) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	args := m.Called(ctx, id, tokenHash)
	return args.Error(0)
}

func (m *mockUserRepo) RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) error {
	args := m.Called(ctx, id, oldHash, newHash)
	return args.Error(0)
}

func (m *mockUserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockSubRepo struct {
	mock.Mock
}

func (m *mockSubRepo) GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	args := m.Called(ctx, username, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChannelProfile), args.Error(1)
}

// ============================================================================
// Test helpers
// ============================================================================

const testUserID = "550e8400-e29b-41d4-a716-446655440001"

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func handlerTestJWT() *auth.JWTManager {
	return auth.NewJWTManager(
		"access-secret-for-testing-only-1234",
		"refresh-secret-for-testing-only-1234",
		15*time.Minute,
		7*24*time.Hour,
	)
}

func handlerTestEventProducer() *event.Producer {
	logger := handlerTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newTestRouter(userRepo *mockUserRepo, subRepo *mockSubRepo) http.Handler {
	logger := handlerTestLogger()
	svc := service.NewUserService(
		userRepo,
		subRepo,
		handlerTestJWT(),
		memory.New("http://localhost:9000/images"),
		limiter.Noop{},
		handlerTestEventProducer(),
		logger,
	)
	cookies := NewCookieWriter(false, 15*time.Minute, 7*24*time.Hour)
	return NewRouter(svc, cookies, health.NewHandler(), logger, RouterConfig{
		ServiceName: "account",
		CORS:        middleware.DefaultCORSConfig(),
	})
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func storedUser(password string) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:           testUserID,
		Username:     "neo",
		Email:        "neo@x.com",
		FullName:     "Neo",
		PasswordHash: hashForTest(password),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func accessTokenFor(t *testing.T, u *domain.User) string {
	t.Helper()
	token, err := handlerTestJWT().GenerateAccessToken(u.ID, u.Username, u.FullName, u.Email)
	require.NoError(t, err)
	return token
}

func jsonRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ============================================================================
// Register
// ============================================================================

func TestRegister_JSON_Created(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	req := jsonRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username":  "Neo",
		"email":     "Neo@X.com",
		"full_name": "Thomas Anderson",
		"password":  "SecurePass123",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var raw map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	data := raw["data"]
	assert.Contains(t, string(data["username"]), "neo")
	_, hasPassword := data["password_hash"]
	assert.False(t, hasPassword, "credential material must never appear in responses")
	_, hasRefresh := data["refresh_token_hash"]
	assert.False(t, hasRefresh)

	userRepo.AssertExpectations(t)
}

func TestRegister_Multipart_WithAvatar(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("username", "neo"))
	require.NoError(t, mw.WriteField("email", "neo@x.com"))
	require.NoError(t, mw.WriteField("full_name", "Neo"))
	require.NoError(t, mw.WriteField("password", "SecurePass123"))
	fw, err := mw.CreateFormFile("avatar", "avatar.png")
	require.NoError(t, err)
	_, err = io.Copy(fw, strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "avatars/")
}

func TestRegisterThenLogin_SymbolOnlyPassword(t *testing.T) {
	// Passwords have no character-class rules: a symbol-plus-digits password
	// registers and logs in.
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	userRepo.On("GetByIdentifier", mock.Anything, "neo").Return(storedUser("p@ss1234"), nil)
	userRepo.On("SetRefreshToken", mock.Anything, testUserID, mock.AnythingOfType("string")).Return(nil)

	req := jsonRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username":  "neo",
		"email":     "neo@x.com",
		"full_name": "Neo",
		"password":  "p@ss1234",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req = jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "neo",
		"password": "p@ss1234",
	})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRegister_ValidationError(t *testing.T) {
	router := newTestRouter(new(mockUserRepo), new(mockSubRepo))

	req := jsonRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "x",
		"email":    "not-an-email",
		"password": "short",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestRegister_Conflict(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Return(apperrors.Conflict("user", "username", "neo"))

	req := jsonRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username":  "neo",
		"email":     "neo@x.com",
		"full_name": "Neo",
		"password":  "SecurePass123",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
}

// ============================================================================
// Login
// ============================================================================

func TestLogin_SetsAuthCookies(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	userRepo.On("GetByIdentifier", mock.Anything, "neo").Return(storedUser("SecurePass123"), nil)
	userRepo.On("SetRefreshToken", mock.Anything, testUserID, mock.AnythingOfType("string")).Return(nil)

	req := jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "neo",
		"password": "SecurePass123",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	access := cookieByName(rec, middleware.AccessTokenCookie)
	require.NotNil(t, access, "accessToken cookie must be set")
	assert.True(t, access.HttpOnly)
	assert.NotEmpty(t, access.Value)

	refresh := cookieByName(rec, RefreshTokenCookie)
	require.NotNil(t, refresh, "refreshToken cookie must be set")
	assert.True(t, refresh.HttpOnly)

	userRepo.AssertExpectations(t)
}

func TestLogin_ByEmail(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	userRepo.On("GetByIdentifier", mock.Anything, "neo@x.com").Return(storedUser("SecurePass123"), nil)
	userRepo.On("SetRefreshToken", mock.Anything, testUserID, mock.AnythingOfType("string")).Return(nil)

	req := jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "neo@x.com",
		"password": "SecurePass123",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLogin_WrongPassword(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	userRepo.On("GetByIdentifier", mock.Anything, "neo").Return(storedUser("SecurePass123"), nil)

	req := jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "neo",
		"password": "WrongPass123",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cookieByName(rec, middleware.AccessTokenCookie))
}

func TestLogin_UnknownUser(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	userRepo.On("GetByIdentifier", mock.Anything, "ghost").Return(nil, apperrors.NotFound("user", "ghost"))

	req := jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "ghost",
		"password": "SecurePass123",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Protected routes and the auth gate
// ============================================================================

func TestMe_RequiresToken(t *testing.T) {
	router := newTestRouter(new(mockUserRepo), new(mockSubRepo))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
}

func TestMe_WithBearerToken(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	u := storedUser("SecurePass123")
	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, u))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"username":"neo"`)
}

func TestMe_CookieWinsOverHeader(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	u := storedUser("SecurePass123")
	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)

	// Valid cookie plus a garbage header: the cookie must be the one used.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: accessTokenFor(t, u)})
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Garbage cookie plus a valid header: the cookie still wins, so 401.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: "garbage"})
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, u))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_ExpiredToken(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	expiredJWT := auth.NewJWTManager(
		"access-secret-for-testing-only-1234",
		"refresh-secret-for-testing-only-1234",
		-time.Minute,
		7*24*time.Hour,
	)
	token, err := expiredJWT.GenerateAccessToken(testUserID, "neo", "Neo", "neo@x.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMe_PatchFullName(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	u := storedUser("SecurePass123")
	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	req := jsonRequest(http.MethodPatch, "/api/v1/users/me", map[string]string{
		"full_name": "Trinity",
	})
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, u))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Trinity")
}

func TestUpdateAvatar_Multipart(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	u := storedUser("SecurePass123")
	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "new.png")
	require.NoError(t, err)
	_, err = io.Copy(fw, strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, u))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "avatars/")
}

// ============================================================================
// Refresh
// ============================================================================

func TestRefresh_FromCookie(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	u := storedUser("SecurePass123")
	refreshToken, err := handlerTestJWT().GenerateRefreshToken(u.ID)
	require.NoError(t, err)
	u.RefreshTokenHash = sha256Hex(refreshToken)

	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)
	userRepo.On("RotateRefreshToken", mock.Anything, testUserID, mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: refreshToken})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	newRefresh := cookieByName(rec, RefreshTokenCookie)
	require.NotNil(t, newRefresh)
	assert.NotEqual(t, refreshToken, newRefresh.Value, "refresh must rotate the cookie")
}

func TestRefresh_FromBody(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	u := storedUser("SecurePass123")
	refreshToken, err := handlerTestJWT().GenerateRefreshToken(u.ID)
	require.NoError(t, err)
	u.RefreshTokenHash = sha256Hex(refreshToken)

	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)
	userRepo.On("RotateRefreshToken", mock.Anything, testUserID, mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	req := jsonRequest(http.MethodPost, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRefresh_NoToken(t *testing.T) {
	router := newTestRouter(new(mockUserRepo), new(mockSubRepo))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_UsedToken(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	u := storedUser("SecurePass123")
	refreshToken, err := handlerTestJWT().GenerateRefreshToken(u.ID)
	require.NoError(t, err)
	u.RefreshTokenHash = sha256Hex("a-newer-token")

	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)
	userRepo.On("RotateRefreshToken", mock.Anything, testUserID, mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Return(apperrors.ErrNotFound)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: refreshToken})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================================================
// Logout
// ============================================================================

func TestLogout_ClearsCookiesAndIsIdempotent(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	u := storedUser("SecurePass123")
	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)
	userRepo.On("ClearRefreshToken", mock.Anything, testUserID).Return(nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, u))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		access := cookieByName(rec, middleware.AccessTokenCookie)
		require.NotNil(t, access)
		assert.Empty(t, access.Value)
		assert.Negative(t, access.MaxAge)
	}
}

// ============================================================================
// Change password
// ============================================================================

func TestChangePassword_Success(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	u := storedUser("OldPass1234")
	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)
	userRepo.On("UpdatePassword", mock.Anything, testUserID, mock.AnythingOfType("string")).Return(nil)

	req := jsonRequest(http.MethodPost, "/api/v1/auth/change-password", map[string]string{
		"old_password": "OldPass1234",
		"new_password": "NewPass1234",
	})
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, u))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	userRepo.AssertNotCalled(t, "ClearRefreshToken", mock.Anything, mock.Anything)
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	userRepo := new(mockUserRepo)
	router := newTestRouter(userRepo, new(mockSubRepo))

	u := storedUser("OldPass1234")
	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)

	req := jsonRequest(http.MethodPost, "/api/v1/auth/change-password", map[string]string{
		"old_password": "NotTheOld1",
		"new_password": "NewPass1234",
	})
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, u))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================================================
// Channels
// ============================================================================

func TestChannel_PublicAnonymous(t *testing.T) {
	subRepo := new(mockSubRepo)
	router := newTestRouter(new(mockUserRepo), subRepo)

	subRepo.On("GetChannelProfile", mock.Anything, "neo", "").Return(&domain.ChannelProfile{
		ID:              testUserID,
		Username:        "neo",
		SubscriberCount: 12,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/neo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"subscriber_count":12`)
	subRepo.AssertExpectations(t)
}

func TestChannel_AuthenticatedViewer(t *testing.T) {
	userRepo := new(mockUserRepo)
	subRepo := new(mockSubRepo)
	router := newTestRouter(userRepo, subRepo)

	u := storedUser("SecurePass123")
	userRepo.On("GetByID", mock.Anything, testUserID).Return(u, nil)
	subRepo.On("GetChannelProfile", mock.Anything, "trinity", testUserID).Return(&domain.ChannelProfile{
		ID:           "u-2",
		Username:     "trinity",
		IsSubscribed: true,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/trinity", nil)
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, u))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"is_subscribed":true`)
	subRepo.AssertExpectations(t)
}

func TestChannel_NotFound(t *testing.T) {
	subRepo := new(mockSubRepo)
	router := newTestRouter(new(mockUserRepo), subRepo)

	subRepo.On("GetChannelProfile", mock.Anything, "ghost", "").Return(nil, apperrors.NotFound("channel", "ghost"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Content type enforcement
// ============================================================================

func TestContentTypeJSON_RejectsPlainText(t *testing.T) {
	router := newTestRouter(new(mockUserRepo), new(mockSubRepo))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("username=neo"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
