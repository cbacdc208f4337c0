package adminauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2moomoo/llmgateway/internal/apperr"
)

// LoginRequest is the JSON body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the JSON response for a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Service handles admin login and token issuance.
type Service struct {
	store  *Store
	tokens *TokenManager
	logger *slog.Logger
}

// NewService creates an admin auth Service.
func NewService(pool *pgxpool.Pool, tokens *TokenManager, logger *slog.Logger) *Service {
	return &Service{store: NewStore(pool), tokens: tokens, logger: logger}
}

// Login verifies credentials, stamps last_login, and issues a session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	p, err := s.store.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResponse{}, apperr.New(apperr.CodeAuthInvalid, "incorrect username or password")
		}
		return LoginResponse{}, fmt.Errorf("looking up admin principal: %w", err)
	}

	if !p.Active || !VerifyPassword(p.PasswordHash, req.Password) {
		return LoginResponse{}, apperr.New(apperr.CodeAuthInvalid, "incorrect username or password")
	}

	if err := s.store.UpdateLastLogin(ctx, p.ID); err != nil {
		s.logger.Error("updating admin last login", "error", err, "username", p.Username)
	}

	token, err := s.tokens.IssueToken(p.Username)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("issuing admin token: %w", err)
	}

	return LoginResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Authenticate validates a bearer admin token and returns the principal it
// names, confirming the principal still exists.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (Principal, error) {
	claims, err := s.tokens.ValidateToken(rawToken)
	if err != nil {
		return Principal{}, apperr.New(apperr.CodeAuthInvalid, "invalid authentication credentials")
	}

	p, err := s.store.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, apperr.New(apperr.CodeAuthInvalid, "invalid authentication credentials")
		}
		return Principal{}, fmt.Errorf("looking up admin principal: %w", err)
	}
	return p, nil
}
