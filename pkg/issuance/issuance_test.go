package issuance

import (
	"testing"
	"time"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"User@Example.com", "user@example.com"},
		{"  spaced@example.com  ", "spaced@example.com"},
		{"already@lower.com", "already@lower.com"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeEmail(tt.in); got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDomainAllowed(t *testing.T) {
	s := &Service{allowedDomains: []string{"allowed.example", "also-allowed.example"}}

	tests := []struct {
		email string
		want  bool
	}{
		{"user@allowed.example", true},
		{"user@also-allowed.example", true},
		{"user@not-allowed.example", false},
		{"user@sub.allowed.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := s.domainAllowed(tt.email); got != tt.want {
				t.Errorf("domainAllowed(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestGenerateCodeFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode() error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("generateCode() = %q, want a 6-digit string", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("generateCode() = %q, want only digits", code)
			}
		}
	}
}

func TestVerificationCodeRedeemable(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	tests := []struct {
		name string
		c    VerificationCode
		want bool
	}{
		{"unused, unexpired", VerificationCode{Used: false, ExpiresAt: future}, true},
		{"used, unexpired", VerificationCode{Used: true, ExpiresAt: future}, false},
		{"unused, expired", VerificationCode{Used: false, ExpiresAt: past}, false},
		{"used, expired", VerificationCode{Used: true, ExpiresAt: past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Redeemable(now); got != tt.want {
				t.Errorf("Redeemable() = %v, want %v", got, tt.want)
			}
		})
	}
}
