package adminauth

import (
	"strings"
	"testing"
	"time"
)

func TestIssueAndValidateTokenRoundTrip(t *testing.T) {
	tm, err := NewTokenManager(GenerateDevSecret(), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error: %v", err)
	}

	token, err := tm.IssueToken("admin")
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error: %v", err)
	}
	if claims.Subject != "admin" {
		t.Fatalf("Subject = %q, want %q", claims.Subject, "admin")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	tm, err := NewTokenManager(GenerateDevSecret(), -time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager() error: %v", err)
	}

	token, err := tm.IssueToken("admin")
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	if _, err := tm.ValidateToken(token); err == nil {
		t.Fatal("ValidateToken() = nil error, want an expiry error")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	tm1, _ := NewTokenManager(GenerateDevSecret(), time.Hour)
	tm2, _ := NewTokenManager(GenerateDevSecret(), time.Hour)

	token, err := tm1.IssueToken("admin")
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	if _, err := tm2.ValidateToken(token); err == nil {
		t.Fatal("ValidateToken() = nil error, want a signature error")
	}
}

func TestNewTokenManagerRejectsShortSecret(t *testing.T) {
	_, err := NewTokenManager("too-short", time.Hour)
	if err == nil {
		t.Fatal("NewTokenManager() = nil error, want an error for a short secret")
	}
	if !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("error = %q, want it to mention the 32-byte minimum", err.Error())
	}
}
