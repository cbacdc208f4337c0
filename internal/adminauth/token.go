// Package adminauth issues and validates the short-lived HMAC-signed tokens
// that gate the admin surface, and owns the Admin Principal bootstrap.
package adminauth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// Claims are the claims embedded in a self-issued admin session JWT.
type Claims struct {
	Subject string `json:"sub"`
}

// TokenManager issues and validates self-signed admin JWTs using HMAC-SHA256.
type TokenManager struct {
	signingKey []byte
	ttl        time.Duration
}

// NewTokenManager creates a token manager. The secret must be at least 32 bytes.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("admin secret must be at least 32 bytes, got %d", len(secret))
	}
	return &TokenManager{signingKey: []byte(secret), ttl: ttl}, nil
}

// GenerateDevSecret generates a random 32-byte hex-encoded secret for dev mode.
func GenerateDevSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}

// IssueToken creates a signed JWT carrying the admin username as subject.
func (tm *TokenManager) IssueToken(username string) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: tm.signingKey},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("creating signer: %w", err)
	}

	now := time.Now()
	registered := jwt.Claims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(tm.ttl)),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    "llmgateway-admin",
	}

	token, err := jwt.Signed(signer).Claims(registered).Claims(Claims{Subject: username}).Serialize()
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// ValidateToken verifies the JWT signature and expiry and returns the claims.
func (tm *TokenManager) ValidateToken(raw string) (*Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	var registered jwt.Claims
	var custom Claims
	if err := tok.Claims(tm.signingKey, &registered, &custom); err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	if err := registered.ValidateWithLeeway(jwt.Expected{
		Issuer: "llmgateway-admin",
		Time:   time.Now(),
	}, 5*time.Second); err != nil {
		return nil, fmt.Errorf("validating claims: %w", err)
	}

	return &custom, nil
}
