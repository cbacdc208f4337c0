// Package app wires together configuration, infrastructure, and HTTP
// handlers, then runs the gateway and/or admin listeners until ctx is
// cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/2moomoo/llmgateway/internal/adminauth"
	"github.com/2moomoo/llmgateway/internal/config"
	"github.com/2moomoo/llmgateway/internal/gatewayauth"
	"github.com/2moomoo/llmgateway/internal/httpserver"
	"github.com/2moomoo/llmgateway/internal/platform"
	"github.com/2moomoo/llmgateway/internal/proxy"
	"github.com/2moomoo/llmgateway/internal/ratelimit"
	"github.com/2moomoo/llmgateway/internal/requestlog"
	"github.com/2moomoo/llmgateway/internal/telemetry"
	"github.com/2moomoo/llmgateway/internal/upstream"
	"github.com/2moomoo/llmgateway/pkg/credential"
	"github.com/2moomoo/llmgateway/pkg/issuance"
)

// Run is the main application entry point: given the loaded config, it
// connects to infrastructure and starts the listener(s) selected by cfg.Mode.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting llmgateway", "mode", cfg.Mode)

	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	if err := adminauth.Bootstrap(ctx, adminauth.NewStore(pool), logger); err != nil {
		return fmt.Errorf("bootstrapping admin principal: %w", err)
	}

	registry := telemetry.NewMetricsRegistry(telemetry.All()...)

	upstreamClient := upstream.NewClient(cfg.UpstreamBaseURL)

	credentialStore := credential.NewStore(pool)
	authenticator := gatewayauth.NewAuthenticator(credentialStore)
	limiter := ratelimit.New(cfg.TierLimits)

	reqLog := requestlog.NewWriter(pool, logger)
	reqLog.Start(ctx)
	defer reqLog.Close()

	proxyHandler := proxy.NewHandler(logger, authenticator, limiter, upstreamClient, reqLog, cfg.UpstreamDefaultModel)

	var emailSender issuance.EmailSender
	if cfg.UseMockEmail {
		emailSender = issuance.NewMockEmailSender(logger)
	} else {
		emailSender = issuance.NewSMTPEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}
	issuanceService := issuance.NewService(pool, emailSender, logger, cfg.AllowedEmailDomains, time.Duration(cfg.CodeTTLMinutes)*time.Minute)
	issuanceHandler := issuance.NewHandler(logger, issuanceService)

	if cfg.AdminSecret == "" {
		return errors.New("ADMIN_SECRET must be set")
	}
	tokenManager, err := adminauth.NewTokenManager(cfg.AdminSecret, time.Duration(cfg.AdminTokenTTLMinutes)*time.Minute)
	if err != nil {
		return fmt.Errorf("creating admin token manager: %w", err)
	}
	adminService := adminauth.NewService(pool, tokenManager, logger)
	adminHandler := adminauth.NewHandler(logger, adminService)
	credentialHandler := credential.NewHandler(logger, pool)
	usageHandler := requestlog.NewHandler(logger, pool)

	serverCfg := httpserver.ServerConfig{CORSAllowedOrigins: cfg.CORSAllowedOrigins, MetricsPath: cfg.MetricsPath}

	healthChecks := map[string]httpserver.ServiceHealth{
		"upstream": upstreamClient.Healthy,
	}

	var servers []*http.Server

	if cfg.Mode == "gateway" || cfg.Mode == "all" {
		r := httpserver.NewRouter(serverCfg, logger)
		r.Get("/health", httpserver.HandleHealth(healthChecks))
		httpserver.MountMetrics(r, serverCfg, registry)
		r.Mount("/auth", issuanceHandler.Routes())
		r.Mount("/v1", proxy.Routes(proxyHandler))

		servers = append(servers, &http.Server{
			Addr:         cfg.GatewayListenAddr(),
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: upstream.Timeout + 30*time.Second,
			IdleTimeout:  60 * time.Second,
		})
	}

	if cfg.Mode == "admin" || cfg.Mode == "all" {
		r := httpserver.NewRouter(serverCfg, logger)
		r.Get("/health", httpserver.HandleHealth(healthChecks))
		httpserver.MountMetrics(r, serverCfg, registry)
		r.Mount("/api", adminHandler.Routes())
		r.Group(func(protected chi.Router) {
			protected.Use(adminauth.RequireAdmin(adminService))
			protected.Mount("/api/keys", credentialHandler.Routes())
			protected.Mount("/api/usage", usageHandler.Routes())
		})

		servers = append(servers, &http.Server{
			Addr:         cfg.AdminListenAddr(),
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		})
	}

	if len(servers) == 0 {
		return fmt.Errorf("unknown GATEWAY_MODE %q", cfg.Mode)
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listening on %s: %w", srv.Addr, err)
				return
			}
			errCh <- nil
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down server", "addr", srv.Addr, "error", err)
		}
	}

	return nil
}
