package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const credentialColumns = `id, key, user_id, tier, is_active, created_at, updated_at, expires_at, description, created_by`

// ErrSecretExists is returned by Create on a unique-constraint violation.
var ErrSecretExists = errors.New("credential: secret already exists")

// ErrNotFound is returned when a lookup by id or by secret finds no row.
var ErrNotFound = errors.New("credential: not found")

// Store provides database operations for credentials, backed by the shared pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a credential Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateParams holds parameters for creating a credential.
type CreateParams struct {
	Secret      string
	UserID      string
	Tier        Tier
	Description string
	ExpiresAt   *time.Time
	Issuer      string
}

func scanCredential(row pgx.Row) (Credential, error) {
	var c Credential
	var tier string
	err := row.Scan(
		&c.ID, &c.Secret, &c.UserID, &tier, &c.Active,
		&c.CreatedAt, &c.UpdatedAt, &c.ExpiresAt, &c.Description, &c.Issuer,
	)
	c.Tier = Tier(tier)
	return c, err
}

func scanCredentials(rows pgx.Rows) ([]Credential, error) {
	defer rows.Close()
	var items []Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning credential row: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credential rows: %w", err)
	}
	return items, nil
}

// Create inserts a new credential and returns the row as persisted.
func (s *Store) Create(ctx context.Context, p CreateParams) (Credential, error) {
	query := `INSERT INTO api_keys (key, user_id, tier, description, expires_at, created_by)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + credentialColumns

	row := s.pool.QueryRow(ctx, query, p.Secret, p.UserID, string(p.Tier), p.Description, p.ExpiresAt, p.Issuer)
	c, err := scanCredential(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Credential{}, ErrSecretExists
		}
		return Credential{}, fmt.Errorf("creating credential: %w", err)
	}
	return c, nil
}

// GetBySecret returns the credential for secret, iff it exists and is active.
// Inactive rows are never returned, regardless of the caller's intent.
func (s *Store) GetBySecret(ctx context.Context, secret string) (Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM api_keys WHERE key = $1 AND is_active = true`
	row := s.pool.QueryRow(ctx, query, secret)
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, fmt.Errorf("fetching credential by secret: %w", err)
	}
	return c, nil
}

// GetAny returns the credential for secret regardless of its active flag, so
// callers that must distinguish "unknown secret" from "deactivated secret"
// (the gateway's Stage 1 authentication) can do so. Admin-facing lookups
// should prefer GetBySecret instead.
func (s *Store) GetAny(ctx context.Context, secret string) (Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM api_keys WHERE key = $1`
	row := s.pool.QueryRow(ctx, query, secret)
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, fmt.Errorf("fetching credential: %w", err)
	}
	return c, nil
}

// List returns a page of credentials ordered by created_at descending.
func (s *Store) List(ctx context.Context, offset, limit int) ([]Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM api_keys ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	rows, err := s.pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	return scanCredentials(rows)
}

// Count returns the total number of credentials, for pagination envelopes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM api_keys`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting credentials: %w", err)
	}
	return n, nil
}

// UpdateParams holds the optional fields accepted by Update.
type UpdateParams struct {
	Tier        *string
	Active      *bool
	Description *string
}

// Update applies the given optional fields to a credential and bumps updated_at.
func (s *Store) Update(ctx context.Context, id int64, p UpdateParams) (Credential, error) {
	query := `UPDATE api_keys SET
		tier = COALESCE($2, tier),
		is_active = COALESCE($3, is_active),
		description = COALESCE($4, description),
		updated_at = now()
	WHERE id = $1
	RETURNING ` + credentialColumns

	row := s.pool.QueryRow(ctx, query, id, p.Tier, p.Active, p.Description)
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, fmt.Errorf("updating credential: %w", err)
	}
	return c, nil
}

// SoftDelete sets is_active=false on a credential. Rows are never hard-deleted.
func (s *Store) SoftDelete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("soft-deleting credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ByUser returns every credential (active or not) owned by userID.
func (s *Store) ByUser(ctx context.Context, userID string) ([]Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing credentials by user: %w", err)
	}
	return scanCredentials(rows)
}
