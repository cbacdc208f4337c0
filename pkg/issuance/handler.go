package issuance

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/2moomoo/llmgateway/internal/httpserver"
)

// RequestCodeRequest is the JSON body for POST /auth/request-code.
type RequestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyCodeRequest is the JSON body for POST /auth/verify-code.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// RequestCodeResponse is the JSON response for a successful request-code call.
type RequestCodeResponse struct {
	ExpiresInMinutes int `json:"expires_in_minutes"`
}

// VerifyCodeResponse is the JSON response for a successful verify-code call.
type VerifyCodeResponse struct {
	APIKey  string `json:"api_key"`
	Message string `json:"message"`
}

// Handler provides the self-service HTTP surface: /auth/request-code,
// /auth/verify-code, /auth/my-keys. Mounted unauthenticated on the gateway.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates an issuance Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes returns a chi.Router with the self-service auth routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/request-code", h.handleRequestCode)
	r.Post("/verify-code", h.handleVerifyCode)
	r.Get("/my-keys", h.handleMyKeys)
	return r
}

func (h *Handler) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	var sourceIP *string
	if ip := clientIP(r); ip != "" {
		sourceIP = &ip
	}

	result, err := h.service.RequestCode(r.Context(), req.Email, sourceIP)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, RequestCodeResponse{ExpiresInMinutes: result.ExpiresInMinutes})
}

func (h *Handler) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, VerifyCodeResponse{APIKey: result.APIKey, Message: result.Message})
}

func (h *Handler) handleMyKeys(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "email query parameter is required")
		return
	}

	items, err := h.service.MyKeys(r.Context(), email)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	responses := make([]any, 0, len(items))
	for _, c := range items {
		responses = append(responses, c.ToResponse())
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{"keys": responses, "count": len(responses)})
}

// clientIP extracts the client IP, preferring X-Forwarded-For / X-Real-IP
// over RemoteAddr. It returns "" when no address parses.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		if addr, err := netip.ParseAddr(strings.TrimSpace(parts[0])); err == nil {
			return addr.String()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr.String()
		}
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.String()
	}
	return ""
}
