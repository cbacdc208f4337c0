package gatewayauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		wantToken  string
		wantOK     bool
	}{
		{"missing header", "", "", false},
		{"valid bearer", "Bearer sk-internal-abc", "sk-internal-abc", true},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", false},
		{"bearer with empty token", "Bearer ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/chat/completions", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}

			token, ok := bearerToken(r)
			if ok != tt.wantOK || token != tt.wantToken {
				t.Errorf("bearerToken() = (%q, %v), want (%q, %v)", token, ok, tt.wantToken, tt.wantOK)
			}
		})
	}
}
