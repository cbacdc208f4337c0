// Package gatewayauth implements Stage 1 of the proxy pipeline: resolving
// the caller's bearer credential to a usable APIKeyInfo, or failing with one
// of the four distinguished 401 reasons.
package gatewayauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/2moomoo/llmgateway/internal/apperr"
	"github.com/2moomoo/llmgateway/pkg/credential"
)

// KeyInfo is the information about an authenticated credential carried
// forward through the remaining pipeline stages.
type KeyInfo struct {
	KeyID  int64
	Secret string
	UserID string
	Tier   string
}

// Authenticator resolves bearer credentials against the credential store.
type Authenticator struct {
	store *credential.Store
}

// NewAuthenticator creates an Authenticator backed by the given credential store.
func NewAuthenticator(store *credential.Store) *Authenticator {
	return &Authenticator{store: store}
}

// FromRequest extracts the bearer credential from the Authorization header
// and resolves it, enforcing presence, existence, active, and expiry in order.
//
// The repository's active-only lookup cannot distinguish "unknown secret"
// from "deactivated secret", so this uses the any-status lookup and applies
// the active/expiry checks itself — this is what lets 401 invalid and 401
// inactive carry distinct reasons instead of collapsing to one.
func (a *Authenticator) FromRequest(ctx context.Context, r *http.Request) (KeyInfo, error) {
	secret, ok := bearerToken(r)
	if !ok {
		return KeyInfo{}, apperr.New(apperr.CodeAuthMissing, "missing API key. Please provide a valid API key in the Authorization header")
	}

	c, err := a.store.GetAny(ctx, secret)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return KeyInfo{}, apperr.New(apperr.CodeAuthInvalid, "invalid API key. Please check your credentials")
		}
		return KeyInfo{}, fmt.Errorf("resolving credential: %w", err)
	}

	if !c.Active {
		return KeyInfo{}, apperr.New(apperr.CodeAuthInactive, "API key has been deactivated")
	}

	// Corrected: the source compared expiry against updated_at, a bug that
	// let stale-but-recently-touched keys outlive their expiry. Compare
	// against wall-clock now instead.
	if c.ExpiresAt != nil && !c.ExpiresAt.After(time.Now()) {
		return KeyInfo{}, apperr.New(apperr.CodeAuthExpired, "API key has expired")
	}

	return KeyInfo{KeyID: c.ID, Secret: c.Secret, UserID: c.UserID, Tier: string(c.Tier)}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
