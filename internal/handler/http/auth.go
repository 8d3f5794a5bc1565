package http

import (
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Titansingh/ProfessionalBackend/internal/service"
	"github.com/Titansingh/ProfessionalBackend/pkg/httputil"
	"github.com/Titansingh/ProfessionalBackend/pkg/middleware"
	"github.com/Titansingh/ProfessionalBackend/pkg/validator"
)

// maxImageSize caps a single uploaded image.
const maxImageSize = 5 << 20

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.UserService
	cookies *CookieWriter
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.UserService, cookies *CookieWriter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for registration. The same fields
// arrive as form values when the request is multipart.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the JSON request body for login. Either username or email
// identifies the account.
type LoginRequest struct {
	Username string `json:"username" validate:"omitempty,min=3,max=30"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the JSON request body for token refresh, used when the
// client does not send the refreshToken cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest is the JSON request body for changing the password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// --- Response types ---

// AuthResponse wraps user data with tokens.
type AuthResponse struct {
	User   any `json:"user"`
	Tokens any `json:"tokens"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register. It accepts either a JSON body
// or a multipart form carrying optional avatar and cover_image files.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var (
		req    RegisterRequest
		avatar *service.ImageUpload
		cover  *service.ImageUpload
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, 2*maxImageSize+maxJSONBody)
		if err := r.ParseMultipartForm(maxImageSize); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to parse multipart form: " + err.Error()},
			})
			return
		}

		req = RegisterRequest{
			Username: r.FormValue("username"),
			Email:    r.FormValue("email"),
			FullName: r.FormValue("full_name"),
			Password: r.FormValue("password"),
		}

		var closers []multipart.File
		defer func() {
			for _, f := range closers {
				_ = f.Close()
			}
		}()

		if upload, file := formImage(r, "avatar"); upload != nil {
			avatar = upload
			closers = append(closers, file)
		}
		if upload, file := formImage(r, "cover_image"); upload != nil {
			cover = upload
			closers = append(closers, file)
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Password:   req.Password,
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: user})
}

// Login handles POST /api/v1/auth/login. On success the token pair is both
// returned in the body and set as httpOnly cookies.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	user, tokens, err := h.service.Login(r.Context(), service.LoginInput{
		Identifier: identifier,
		Password:   req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.Set(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AuthResponse{User: user, Tokens: tokens},
	})
}

// Refresh handles POST /api/v1/auth/refresh. The refresh token comes from
// the refreshToken cookie, or from the JSON body as a fallback.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		refreshToken = c.Value
	}

	if refreshToken == "" && r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
		refreshToken = req.RefreshToken
	}

	tokens, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.Set(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tokens})
}

// Logout handles POST /api/v1/auth/logout. Requires auth. Clearing an
// already-cleared session still succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.service.Logout(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.Clear(w)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "logged out"},
	})
}

// ChangePassword handles POST /api/v1/auth/change-password. Requires auth.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "password changed"},
	})
}

// formImage pulls an optional image file out of a parsed multipart form.
// The caller owns closing the returned file.
func formImage(r *http.Request, field string) (*service.ImageUpload, multipart.File) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &service.ImageUpload{
		ContentType: contentType,
		Size:        header.Size,
		Data:        file,
	}, file
}
