package adminauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no admin principal matches a lookup.
var ErrNotFound = errors.New("adminauth: principal not found")

// Principal is an operator account authorised to manage credentials.
type Principal struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	Active       bool
	LastLogin    *time.Time
}

const principalColumns = `id, username, hashed_password, email, is_active, last_login`

// Store provides database operations for admin principals.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanPrincipal(row pgx.Row) (Principal, error) {
	var p Principal
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.Email, &p.Active, &p.LastLogin)
	return p, err
}

// GetByUsername looks up a principal by its unique username.
func (s *Store) GetByUsername(ctx context.Context, username string) (Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM admin_users WHERE username = $1`
	row := s.pool.QueryRow(ctx, query, username)
	p, err := scanPrincipal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, fmt.Errorf("fetching admin principal: %w", err)
	}
	return p, nil
}

// Create inserts a new admin principal with an already-hashed password.
func (s *Store) Create(ctx context.Context, username, passwordHash, email string) (Principal, error) {
	query := `INSERT INTO admin_users (username, hashed_password, email, is_active)
	VALUES ($1, $2, $3, true)
	RETURNING ` + principalColumns

	row := s.pool.QueryRow(ctx, query, username, passwordHash, email)
	p, err := scanPrincipal(row)
	if err != nil {
		return Principal{}, fmt.Errorf("creating admin principal: %w", err)
	}
	return p, nil
}

// UpdateLastLogin stamps last_login with the current time.
func (s *Store) UpdateLastLogin(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `UPDATE admin_users SET last_login = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("updating admin last login: %w", err)
	}
	return nil
}
