package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name   string
		check  func(*Config) bool
		expect string
	}{
		{
			name:   "default mode is all",
			check:  func(c *Config) bool { return c.Mode == "all" },
			expect: "all",
		},
		{
			name:   "default gateway port is 8000",
			check:  func(c *Config) bool { return c.GatewayPort == 8000 },
			expect: "8000",
		},
		{
			name:   "default admin port is 8002",
			check:  func(c *Config) bool { return c.AdminPort == 8002 },
			expect: "8002",
		},
		{
			name:   "default upstream base url",
			check:  func(c *Config) bool { return c.UpstreamBaseURL == "http://localhost:8001" },
			expect: "http://localhost:8001",
		},
		{
			name:   "default admin token ttl is 60 minutes",
			check:  func(c *Config) bool { return c.AdminTokenTTLMinutes == 60 },
			expect: "60",
		},
		{
			name:   "default code ttl is 5 minutes",
			check:  func(c *Config) bool { return c.CodeTTLMinutes == 5 },
			expect: "5",
		},
		{
			name:   "use mock email defaults true",
			check:  func(c *Config) bool { return c.UseMockEmail },
			expect: "true",
		},
		{
			name:   "gateway listen addr format",
			check:  func(c *Config) bool { return c.GatewayListenAddr() == "0.0.0.0:8000" },
			expect: "0.0.0.0:8000",
		},
		{
			name:   "admin listen addr format",
			check:  func(c *Config) bool { return c.AdminListenAddr() == "0.0.0.0:8002" },
			expect: "0.0.0.0:8002",
		},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("expected %s", tt.expect)
			}
		})
	}
}

func TestTierLimits(t *testing.T) {
	cfg := &Config{
		RateLimitFreePerMinute:     10,
		RateLimitFreePerHour:       100,
		RateLimitStandardPerMinute: 30,
		RateLimitStandardPerHour:   300,
		RateLimitPremiumPerMinute:  100,
		RateLimitPremiumPerHour:    1000,
	}

	tests := []struct {
		tier              string
		wantMin, wantHour int
	}{
		{"free", 10, 100},
		{"standard", 30, 300},
		{"premium", 100, 1000},
		{"unknown-tier", 10, 100},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			gotMin, gotHour := cfg.TierLimits(tt.tier)
			if gotMin != tt.wantMin || gotHour != tt.wantHour {
				t.Errorf("TierLimits(%q) = (%d, %d), want (%d, %d)", tt.tier, gotMin, gotHour, tt.wantMin, tt.wantHour)
			}
		})
	}
}
