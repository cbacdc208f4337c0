package issuance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2moomoo/llmgateway/internal/apperr"
	"github.com/2moomoo/llmgateway/internal/telemetry"
	"github.com/2moomoo/llmgateway/pkg/credential"
)

// RequestCodeResult is returned on a successful request_code call.
type RequestCodeResult struct {
	ExpiresInMinutes int
}

// VerifyResult is returned on a successful verify call.
type VerifyResult struct {
	APIKey  string
	Message string
}

// Service implements the self-service issuance flow: validate email domain,
// mint and dispatch a one-time code, then on verification either hand back
// an existing active credential or mint a fresh one.
type Service struct {
	codes          *CodeStore
	credentials    *credential.Store
	sender         EmailSender
	logger         *slog.Logger
	allowedDomains []string
	codeTTL        time.Duration
}

// NewService creates an issuance Service.
func NewService(pool *pgxpool.Pool, sender EmailSender, logger *slog.Logger, allowedDomains []string, codeTTL time.Duration) *Service {
	return &Service{
		codes:          NewCodeStore(pool),
		credentials:    credential.NewStore(pool),
		sender:         sender,
		logger:         logger,
		allowedDomains: allowedDomains,
		codeTTL:        codeTTL,
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) domainAllowed(email string) bool {
	for _, domain := range s.allowedDomains {
		if strings.HasSuffix(email, "@"+domain) {
			return true
		}
	}
	return false
}

// RequestCode runs the request phase: normalise, validate domain, mint and
// persist a code, dispatch via EmailSender, opportunistically purge expired
// codes. A dispatch failure leaves the code in place — a later verify still
// works if the user already saw the code another way.
func (s *Service) RequestCode(ctx context.Context, email string, sourceIP *string) (RequestCodeResult, error) {
	email = NormalizeEmail(email)

	if !strings.Contains(email, "@") {
		return RequestCodeResult{}, apperr.New(apperr.CodeInvalidEmail, "invalid email address")
	}
	if !s.domainAllowed(email) {
		return RequestCodeResult{}, apperr.New(apperr.CodeDomainNotAllowed, "email domain is not allowed")
	}

	code, err := generateCode()
	if err != nil {
		return RequestCodeResult{}, fmt.Errorf("generating code: %w", err)
	}

	expiresAt := time.Now().Add(s.codeTTL)
	if _, err := s.codes.Create(ctx, email, code, expiresAt, sourceIP); err != nil {
		return RequestCodeResult{}, fmt.Errorf("persisting verification code: %w", err)
	}

	if err := s.sender.Send(email, code); err != nil {
		return RequestCodeResult{}, apperr.Wrap(apperr.CodeEmailSendFailed, "failed to send verification email", err)
	}

	telemetry.IssuanceCodesSentTotal.Inc()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if n, err := s.codes.PurgeExpired(ctx); err != nil {
			s.logger.Warn("purging expired verification codes", "error", err)
		} else if n > 0 {
			s.logger.Info("purged expired verification codes", "count", n)
		}
	}()

	return RequestCodeResult{ExpiresInMinutes: int(s.codeTTL.Minutes())}, nil
}

// Verify runs the verify phase: look up a redeemable code, mark it used
// before minting (so a crashed mint cannot be redriven by the same code),
// then return an existing active credential or mint a new one.
func (s *Service) Verify(ctx context.Context, email, code string) (VerifyResult, error) {
	email = NormalizeEmail(email)

	vc, err := s.codes.GetRedeemable(ctx, email, code)
	if err != nil {
		if errors.Is(err, ErrNoRedeemableCode) {
			return VerifyResult{}, apperr.New(apperr.CodeInvalidOrExpired, "invalid or expired code")
		}
		return VerifyResult{}, fmt.Errorf("looking up verification code: %w", err)
	}

	if err := s.codes.MarkUsed(ctx, vc.ID); err != nil {
		return VerifyResult{}, fmt.Errorf("marking code used: %w", err)
	}

	existing, err := s.credentials.ByUser(ctx, email)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("listing existing credentials: %w", err)
	}
	for _, c := range existing {
		if c.Active {
			return VerifyResult{APIKey: c.Secret, Message: "an active API key already exists for this email"}, nil
		}
	}

	secret, err := credential.GenerateSecret()
	if err != nil {
		return VerifyResult{}, fmt.Errorf("generating credential secret: %w", err)
	}

	c, err := s.credentials.Create(ctx, credential.CreateParams{
		Secret:      secret,
		UserID:      email,
		Tier:        credential.TierStandard,
		Description: "self-service",
		Issuer:      "self-service",
	})
	if err != nil {
		return VerifyResult{}, fmt.Errorf("minting self-service credential: %w", err)
	}

	telemetry.IssuanceCredentialsMintedTotal.Inc()

	return VerifyResult{APIKey: c.Secret, Message: "API key created successfully"}, nil
}

// MyKeys returns the credential list for email after domain validation,
// mirroring the source's get_api_keys_by_user lookup.
func (s *Service) MyKeys(ctx context.Context, email string) ([]credential.Credential, error) {
	email = NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, apperr.New(apperr.CodeInvalidEmail, "invalid email address")
	}
	if !s.domainAllowed(email) {
		return nil, apperr.New(apperr.CodeDomainNotAllowed, "email domain is not allowed")
	}

	items, err := s.credentials.ByUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("listing credentials for user: %w", err)
	}
	return items, nil
}
