package issuance

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRedeemableCode is returned when no unexpired, unused code matches.
var ErrNoRedeemableCode = errors.New("issuance: no redeemable code")

// VerificationCode is a one-time code gating self-service credential issuance.
// State machine: FRESH -> USED (verify) or FRESH -> EXPIRED (wall-clock);
// terminal states never transition.
type VerificationCode struct {
	ID        int64
	Email     string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
	SourceIP  *string
}

// Redeemable reports whether the code is still usable: unused and unexpired.
func (c VerificationCode) Redeemable(now time.Time) bool {
	return !c.Used && c.ExpiresAt.After(now)
}

// generateCode produces a uniformly random six-digit decimal code with
// leading zeros preserved.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generating verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

const codeColumns = `id, email, code, created_at, expires_at, used, source_ip`

// CodeStore provides database operations for verification codes.
type CodeStore struct {
	pool *pgxpool.Pool
}

// NewCodeStore creates a CodeStore backed by the given connection pool.
func NewCodeStore(pool *pgxpool.Pool) *CodeStore {
	return &CodeStore{pool: pool}
}

func scanCode(row pgx.Row) (VerificationCode, error) {
	var c VerificationCode
	err := row.Scan(&c.ID, &c.Email, &c.Code, &c.CreatedAt, &c.ExpiresAt, &c.Used, &c.SourceIP)
	return c, err
}

// Create persists a new verification code for email, expiring at expiresAt.
func (s *CodeStore) Create(ctx context.Context, email, code string, expiresAt time.Time, sourceIP *string) (VerificationCode, error) {
	query := `INSERT INTO verification_codes (email, code, expires_at, used, source_ip)
	VALUES ($1, $2, $3, false, $4)
	RETURNING ` + codeColumns

	row := s.pool.QueryRow(ctx, query, email, code, expiresAt, sourceIP)
	c, err := scanCode(row)
	if err != nil {
		return VerificationCode{}, fmt.Errorf("creating verification code: %w", err)
	}
	return c, nil
}

// GetRedeemable returns the code for (email, code) iff it is currently
// redeemable: unused and unexpired.
func (s *CodeStore) GetRedeemable(ctx context.Context, email, code string) (VerificationCode, error) {
	query := `SELECT ` + codeColumns + ` FROM verification_codes
	WHERE email = $1 AND code = $2 AND used = false AND expires_at > now()
	ORDER BY created_at DESC LIMIT 1`

	row := s.pool.QueryRow(ctx, query, email, code)
	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VerificationCode{}, ErrNoRedeemableCode
		}
		return VerificationCode{}, fmt.Errorf("fetching redeemable code: %w", err)
	}
	return c, nil
}

// MarkUsed flips a code's used flag. Idempotent: marking an already-used
// code used again is a no-op, not an error.
func (s *CodeStore) MarkUsed(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `UPDATE verification_codes SET used = true WHERE id = $1`, id); err != nil {
		return fmt.Errorf("marking code used: %w", err)
	}
	return nil
}

// PurgeExpired deletes all codes past their expiry and returns the count removed.
func (s *CodeStore) PurgeExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purging expired codes: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
