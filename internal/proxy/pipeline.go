// Package proxy implements the edge request-handling core: the five-stage
// pipeline (Authenticate, Admit, Forward, Account, Respond) that every
// UPSTREAM-bound request runs through.
package proxy

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/2moomoo/llmgateway/internal/apperr"
	"github.com/2moomoo/llmgateway/internal/gatewayauth"
	"github.com/2moomoo/llmgateway/internal/httpserver"
	"github.com/2moomoo/llmgateway/internal/ratelimit"
	"github.com/2moomoo/llmgateway/internal/requestlog"
	"github.com/2moomoo/llmgateway/internal/telemetry"
	"github.com/2moomoo/llmgateway/internal/upstream"
)

// Handler runs the five-stage pipeline for every proxied UPSTREAM request.
type Handler struct {
	logger        *slog.Logger
	authenticator *gatewayauth.Authenticator
	limiter       *ratelimit.Limiter
	upstream      *upstream.Client
	log           *requestlog.Writer
	defaultModel  string
}

// NewHandler creates a proxy Handler wiring together the pipeline's collaborators.
func NewHandler(
	logger *slog.Logger,
	authenticator *gatewayauth.Authenticator,
	limiter *ratelimit.Limiter,
	upstreamClient *upstream.Client,
	log *requestlog.Writer,
	defaultModel string,
) *Handler {
	return &Handler{
		logger:        logger,
		authenticator: authenticator,
		limiter:       limiter,
		upstream:      upstreamClient,
		log:           log,
		defaultModel:  defaultModel,
	}
}

// ServeHTTP runs the fixed five-stage pipeline against r, whose path is
// expected to carry the preserved /v1/* subpath (see Routes).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := r.URL.Path

	// Stage 1 — Authenticate.
	key, err := h.authenticator.FromRequest(r.Context(), r)
	if err != nil {
		h.logUnauthenticated(r, endpoint, start, err)
		httpserver.RespondAppError(w, err)
		return
	}

	// Stage 2 — Admit.
	decision := h.limiter.Check(key.UserID, key.Tier)
	if !decision.Admitted {
		h.setRateLimitHeaders(w, decision.Status)
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
		rateLimitErr := apperr.RateLimited("rate limit exceeded", decision.RetryAfter)

		h.log.Log(requestlog.Entry{
			UserID:       key.UserID,
			CredentialID: &key.KeyID,
			Endpoint:     endpoint,
			Method:       r.Method,
			Status:       http.StatusTooManyRequests,
			DurationMS:   time.Since(start).Milliseconds(),
			Timestamp:    time.Now(),
		})

		httpserver.RespondAppError(w, rateLimitErr)
		return
	}
	h.setRateLimitHeaders(w, decision.Status)

	// Stage 3 — Forward.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		snippet := requestlog.TruncateError(err.Error())
		h.log.Log(requestlog.Entry{
			UserID:       key.UserID,
			CredentialID: &key.KeyID,
			Endpoint:     endpoint,
			Method:       r.Method,
			Status:       http.StatusBadRequest,
			DurationMS:   time.Since(start).Milliseconds(),
			ErrorSnippet: &snippet,
			Timestamp:    time.Now(),
		})
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}

	forwardStart := time.Now()
	resp, forwardErr := h.upstream.Forward(r.Context(), r.Method, endpoint, body, r.Header.Get("Content-Type"))
	if forwardErr != nil {
		telemetry.UpstreamRequestDuration.WithLabelValues("error").Observe(time.Since(forwardStart).Seconds())
		h.respondUpstreamError(w, r, key, endpoint, start, forwardErr)
		return
	}
	telemetry.UpstreamRequestDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(forwardStart).Seconds())

	// Stage 4 — Account.
	usage := upstream.Usage{}
	if resp.StatusCode == http.StatusOK {
		usage = upstream.ExtractUsage(resp.Body)
		telemetry.TokensTotal.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
		telemetry.TokensTotal.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
	}

	// Stage 5 — Respond.
	var errorSnippet *string
	if resp.StatusCode != http.StatusOK {
		snippet := requestlog.TruncateError(string(resp.Body))
		errorSnippet = &snippet
	}

	var model *string
	if usage.Model != "" {
		model = &usage.Model
	}

	h.log.Log(requestlog.Entry{
		UserID:           key.UserID,
		CredentialID:     &key.KeyID,
		Endpoint:         endpoint,
		Method:           r.Method,
		Status:           resp.StatusCode,
		DurationMS:       time.Since(start).Milliseconds(),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.PromptTokens + usage.CompletionTokens,
		Model:            model,
		ErrorSnippet:     errorSnippet,
		Timestamp:        time.Now(),
	})

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// ServeModels handles GET /v1/models: proxy verbatim, but on upstream error
// synthesize a single-model list instead of surfacing the failure.
func (h *Handler) ServeModels(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := r.URL.Path

	key, err := h.authenticator.FromRequest(r.Context(), r)
	if err != nil {
		h.logUnauthenticated(r, endpoint, start, err)
		httpserver.RespondAppError(w, err)
		return
	}

	decision := h.limiter.Check(key.UserID, key.Tier)
	if !decision.Admitted {
		h.setRateLimitHeaders(w, decision.Status)
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
		h.log.Log(requestlog.Entry{
			UserID: key.UserID, CredentialID: &key.KeyID, Endpoint: endpoint, Method: r.Method,
			Status: http.StatusTooManyRequests, DurationMS: time.Since(start).Milliseconds(), Timestamp: time.Now(),
		})
		httpserver.RespondAppError(w, apperr.RateLimited("rate limit exceeded", decision.RetryAfter))
		return
	}
	h.setRateLimitHeaders(w, decision.Status)

	forwardStart := time.Now()
	resp, err := h.upstream.Forward(r.Context(), http.MethodGet, endpoint, nil, "")
	if err != nil {
		telemetry.UpstreamRequestDuration.WithLabelValues("error").Observe(time.Since(forwardStart).Seconds())
	} else {
		telemetry.UpstreamRequestDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(forwardStart).Seconds())
	}
	if err != nil || resp.StatusCode != http.StatusOK {
		h.log.Log(requestlog.Entry{
			UserID: key.UserID, CredentialID: &key.KeyID, Endpoint: endpoint, Method: r.Method,
			Status: http.StatusOK, DurationMS: time.Since(start).Milliseconds(), Timestamp: time.Now(),
		})
		httpserver.Respond(w, http.StatusOK, upstream.SynthesizeModels(h.defaultModel))
		return
	}

	h.log.Log(requestlog.Entry{
		UserID: key.UserID, CredentialID: &key.KeyID, Endpoint: endpoint, Method: r.Method,
		Status: resp.StatusCode, DurationMS: time.Since(start).Milliseconds(), Timestamp: time.Now(),
	})

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (h *Handler) respondUpstreamError(w http.ResponseWriter, r *http.Request, key gatewayauth.KeyInfo, endpoint string, start time.Time, forwardErr error) {
	var appErr *apperr.Error
	if errors.Is(forwardErr, upstream.ErrTimeout) {
		appErr = apperr.Wrap(apperr.CodeUpstreamTimeout, "upstream request timed out", forwardErr)
	} else {
		appErr = apperr.Wrap(apperr.CodeUpstreamError, "upstream request failed", forwardErr)
	}

	snippet := requestlog.TruncateError(appErr.Error())
	h.log.Log(requestlog.Entry{
		UserID:       key.UserID,
		CredentialID: &key.KeyID,
		Endpoint:     endpoint,
		Method:       r.Method,
		Status:       appErr.Status(),
		DurationMS:   time.Since(start).Milliseconds(),
		ErrorSnippet: &snippet,
		Timestamp:    time.Now(),
	})

	httpserver.RespondAppError(w, appErr)
}

func (h *Handler) logUnauthenticated(r *http.Request, endpoint string, start time.Time, err error) {
	ae, _ := apperr.As(err)
	status := http.StatusUnauthorized
	snippet := err.Error()
	if ae != nil {
		status = ae.Status()
		snippet = ae.Message
	}
	snippet = requestlog.TruncateError(snippet)

	h.log.Log(requestlog.Entry{
		Endpoint:     endpoint,
		Method:       r.Method,
		Status:       status,
		DurationMS:   time.Since(start).Milliseconds(),
		ErrorSnippet: &snippet,
		Timestamp:    time.Now(),
	})
}

func (h *Handler) setRateLimitHeaders(w http.ResponseWriter, s ratelimit.Status) {
	w.Header().Set("X-RateLimit-Limit-Minute", strconv.Itoa(s.MinuteLimit))
	w.Header().Set("X-RateLimit-Remaining-Minute", strconv.Itoa(s.MinuteRemaining))
	w.Header().Set("X-RateLimit-Limit-Hour", strconv.Itoa(s.HourLimit))
	w.Header().Set("X-RateLimit-Remaining-Hour", strconv.Itoa(s.HourRemaining))
}

// Routes mounts the pipeline behind /v1, with /v1/models taking the
// synthesize-on-failure path and everything else running the plain pipeline.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/models", h.ServeModels)
	r.HandleFunc("/*", h.ServeHTTP)
	return r
}
