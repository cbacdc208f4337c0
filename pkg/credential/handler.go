package credential

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2moomoo/llmgateway/internal/adminauth"
	"github.com/2moomoo/llmgateway/internal/httpserver"
)

// Handler provides the admin HTTP surface for credential CRUD (GET/POST/PUT/DELETE
// /api/keys[/{id}]). Mounted behind admin token authentication.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a credential Handler backed by the given connection pool.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool) *Handler {
	return &Handler{logger: logger, service: NewService(pool, logger)}
}

// Routes returns a chi.Router with all credential admin routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	items, total, err := h.service.List(r.Context(), params.Offset, params.PageSize)
	if err != nil {
		h.logger.Error("listing credentials", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list credentials")
		return
	}

	responses := make([]Response, 0, len(items))
	for _, c := range items {
		responses = append(responses, c.ToResponse())
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(responses, params, total))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	issuer := adminauth.UsernameFromContext(r.Context())
	c, err := h.service.Create(r.Context(), req, issuer)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusCreated, c.ToResponse())
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid credential id")
		return
	}

	var req UpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	c, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, c.ToResponse())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid credential id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httpserver.RespondAppError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"message": "credential deleted"})
}
