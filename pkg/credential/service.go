package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2moomoo/llmgateway/internal/apperr"
)

// Service encapsulates credential administration: issuance by an admin
// principal, listing, and the mutation/lifecycle operations.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates a Service backed by the given connection pool.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{store: NewStore(pool), logger: logger}
}

// List returns a page of credentials and the total row count.
func (s *Service) List(ctx context.Context, offset, limit int) ([]Credential, int, error) {
	items, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing credentials: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("counting credentials: %w", err)
	}
	return items, total, nil
}

// Create mints a new credential on behalf of an admin principal.
func (s *Service) Create(ctx context.Context, req CreateRequest, issuer string) (Credential, error) {
	tier := req.Tier
	if tier == "" {
		tier = string(TierStandard)
	}
	if !ValidTier(tier) {
		return Credential{}, apperr.New(apperr.CodeInvalidTier, "tier must be free, standard, or premium")
	}

	secret, err := GenerateSecret()
	if err != nil {
		return Credential{}, fmt.Errorf("generating credential secret: %w", err)
	}

	var expiresAt *time.Time
	if req.ExpiresInDays != nil {
		t := time.Now().Add(time.Duration(*req.ExpiresInDays) * 24 * time.Hour)
		expiresAt = &t
	}

	c, err := s.store.Create(ctx, CreateParams{
		Secret:      secret,
		UserID:      req.UserID,
		Tier:        Tier(tier),
		Description: req.Description,
		ExpiresAt:   expiresAt,
		Issuer:      issuer,
	})
	if err != nil {
		if errors.Is(err, ErrSecretExists) {
			// A 32-byte random collision is cryptographically negligible;
			// surface it as internal rather than retrying.
			return Credential{}, fmt.Errorf("credential secret collision: %w", err)
		}
		return Credential{}, fmt.Errorf("creating credential: %w", err)
	}
	return c, nil
}

// Update applies an admin-initiated partial update to a credential.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Credential, error) {
	if req.Tier != nil && !ValidTier(*req.Tier) {
		return Credential{}, apperr.New(apperr.CodeInvalidTier, "tier must be free, standard, or premium")
	}

	c, err := s.store.Update(ctx, id, UpdateParams{
		Tier:        req.Tier,
		Active:      req.Active,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Credential{}, apperr.New(apperr.CodeNotFound, "credential not found")
		}
		return Credential{}, fmt.Errorf("updating credential: %w", err)
	}
	return c, nil
}

// Delete soft-deletes a credential (sets active=false). Rows are never hard-deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "credential not found")
		}
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// ByUser returns every credential owned by userID, active or not.
func (s *Service) ByUser(ctx context.Context, userID string) ([]Credential, error) {
	items, err := s.store.ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing credentials for user: %w", err)
	}
	return items, nil
}
