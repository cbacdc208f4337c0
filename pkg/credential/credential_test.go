package credential

import (
	"strings"
	"testing"
	"time"
)

func TestValidTier(t *testing.T) {
	tests := []struct {
		tier string
		want bool
	}{
		{"free", true},
		{"standard", true},
		{"premium", true},
		{"gold", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			if got := ValidTier(tt.tier); got != tt.want {
				t.Errorf("ValidTier(%q) = %v, want %v", tt.tier, got, tt.want)
			}
		})
	}
}

func TestGenerateSecretFormat(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error: %v", err)
	}
	if !strings.HasPrefix(secret, "sk-internal-") {
		t.Fatalf("GenerateSecret() = %q, want sk-internal- prefix", secret)
	}

	second, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error: %v", err)
	}
	if secret == second {
		t.Fatal("GenerateSecret() produced identical secrets on two calls")
	}
}

func TestCredentialUsable(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		c    Credential
		want bool
	}{
		{"active, no expiry", Credential{Active: true}, true},
		{"active, unexpired", Credential{Active: true, ExpiresAt: &future}, true},
		{"active, expired", Credential{Active: true, ExpiresAt: &past}, false},
		{"inactive, no expiry", Credential{Active: false}, false},
		{"inactive, unexpired", Credential{Active: false, ExpiresAt: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Usable(now); got != tt.want {
				t.Errorf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}
