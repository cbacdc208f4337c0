package adminauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// defaultUsername and defaultPassword match the well-known bootstrap
// credentials the source system has always shipped with.
const (
	defaultUsername = "admin"
	defaultPassword = "admin123"
	defaultEmail    = "admin@localhost"
)

// Bootstrap creates the well-known default admin principal if none exists
// yet, and emits a one-time warning instructing the operator to rotate it.
func Bootstrap(ctx context.Context, store *Store, logger *slog.Logger) error {
	_, err := store.GetByUsername(ctx, defaultUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("checking for existing admin principal: %w", err)
	}

	hash, err := HashPassword(defaultPassword)
	if err != nil {
		return fmt.Errorf("hashing default admin password: %w", err)
	}

	if _, err := store.Create(ctx, defaultUsername, hash, defaultEmail); err != nil {
		return fmt.Errorf("creating default admin principal: %w", err)
	}

	logger.Warn("created default admin principal with well-known credentials; rotate the password immediately",
		"username", defaultUsername)
	return nil
}
