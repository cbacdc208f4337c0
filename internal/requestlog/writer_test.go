package requestlog

import (
	"strings"
	"testing"
)

func TestTruncateError(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantLen int
	}{
		{name: "short message unchanged", in: "boom", wantLen: 4},
		{name: "exactly at limit", in: strings.Repeat("x", maxErrorLen), wantLen: maxErrorLen},
		{name: "over limit truncated", in: strings.Repeat("x", maxErrorLen+100), wantLen: maxErrorLen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateError(tt.in)
			if len(got) != tt.wantLen {
				t.Errorf("len(TruncateError(...)) = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}
