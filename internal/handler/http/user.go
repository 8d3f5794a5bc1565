package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Titansingh/ProfessionalBackend/internal/domain"
	"github.com/Titansingh/ProfessionalBackend/internal/service"
	"github.com/Titansingh/ProfessionalBackend/pkg/httputil"
	"github.com/Titansingh/ProfessionalBackend/pkg/middleware"
	"github.com/Titansingh/ProfessionalBackend/pkg/validator"
)

// UserHandler handles HTTP requests for account endpoints.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// UpdateAccountRequest is the JSON request body for updating account details.
// Both fields are optional, but at least one must be present.
type UpdateAccountRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

// UpdateMe handles PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req UpdateAccountRequest
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
	user, err := h.service.UpdateAccount(r.Context(), userID, service.UpdateAccountInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

// UpdateAvatar handles PATCH /api/v1/users/me/avatar
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.service.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/me/cover-image
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "cover_image", h.service.UpdateCoverImage)
}

func (h *UserHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID string, upload *service.ImageUpload) (*domain.User, error),
) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+maxJSONBody)

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to parse multipart form: " + err.Error()},
		})
		return
	}

	upload, file := formImage(r, field)
	if upload == nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: field + " file is required"},
		})
		return
	}
	defer file.Close()

	userID := middleware.UserIDFromContext(r.Context())
	user, err := update(r.Context(), userID, upload)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}
