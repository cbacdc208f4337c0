package requestlog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2moomoo/llmgateway/internal/httpserver"
)

// Handler exposes the admin-facing usage aggregation endpoint.
type Handler struct {
	logger *slog.Logger
	stats  *Stats
}

// NewHandler creates a requestlog Handler.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool) *Handler {
	return &Handler{logger: logger, stats: NewStats(pool)}
}

// Routes returns a chi.Router serving GET / (mounted by the caller at /api/usage).
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleUsage)
	return r
}

const defaultUsageDays = 30

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	days := defaultUsageDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "days must be a positive integer")
			return
		}
		days = n
	}

	rows, err := h.stats.UsageStats(r.Context(), userID, days)
	if err != nil {
		h.logger.Error("querying usage stats", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to query usage stats")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{"usage": rows})
}
