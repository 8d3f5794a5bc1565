package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Titansingh/ProfessionalBackend/internal/service"
	"github.com/Titansingh/ProfessionalBackend/pkg/httputil"
	"github.com/Titansingh/ProfessionalBackend/pkg/middleware"
)

// ChannelHandler handles HTTP requests for public channel pages.
type ChannelHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewChannelHandler creates a new channel HTTP handler.
func NewChannelHandler(svc *service.UserService, logger *slog.Logger) *ChannelHandler {
	return &ChannelHandler{service: svc, logger: logger}
}

// Get handles GET /api/v1/channels/{username}. The endpoint is public; when
// the caller presents a valid access token, the response reports whether they
// subscribe to the channel.
func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	viewerID := middleware.UserIDFromContext(r.Context())

	profile, err := h.service.ChannelProfile(r.Context(), username, viewerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}
