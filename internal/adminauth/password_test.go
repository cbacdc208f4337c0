package adminauth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple-1")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	if !VerifyPassword(hash, "correct-horse-battery-staple-1") {
		t.Fatal("VerifyPassword() = false, want true for the correct password")
	}
	if VerifyPassword(hash, "wrong-password") {
		t.Fatal("VerifyPassword() = true, want false for an incorrect password")
	}
}

func TestValidatePasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"too short", "Abc123", false},
		{"no uppercase", "lowercase123456", false},
		{"no lowercase", "UPPERCASE123456", false},
		{"no digit or symbol", "NoDigitsOrSymbolsHere", false},
		{"valid with digit", "ValidPassword123", true},
		{"valid with symbol", "ValidPassword!!!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordPolicy(tt.password)
			if tt.wantOK && err != nil {
				t.Fatalf("ValidatePasswordPolicy(%q) = %v, want nil", tt.password, err)
			}
			if !tt.wantOK && err == nil {
				t.Fatalf("ValidatePasswordPolicy(%q) = nil, want an error", tt.password)
			}
		})
	}
}
