package adminauth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/2moomoo/llmgateway/internal/httpserver"
)

// Handler provides the admin login HTTP surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates an admin auth Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes returns a chi.Router with the login route mounted. Unauthenticated:
// this is what RequireAdmin guards everything else behind.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.handleLogin)
	return r
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, resp)
}
