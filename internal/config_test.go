package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestSyncConfig_Schedule(t *testing.T) {
	cases := []struct {
		spec    string
		wantErr bool
	}{
		{"", false},
		{"@every 10m", false},
		{"*/5 * * * *", false},
		{"every now and then", true},
	}
	for _, tc := range cases {
		cfg := SyncConfig{Schedule: tc.spec}
		err := cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("Validate(%q) err = %v, wantErr %v", tc.spec, err, tc.wantErr)
		}
	}
}

func TestMetricsConfig_Path(t *testing.T) {
	cfg := MetricsConfig{Enabled: true}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty path should default: %v", err)
	}
	if cfg.Path != "/metrics" {
		t.Errorf("path = %q, want /metrics", cfg.Path)
	}

	for _, p := range []string{"metrics", "/api/metrics"} {
		cfg := MetricsConfig{Path: p}
		if err := cfg.Validate(); err == nil {
			t.Errorf("path %q should fail validation", p)
		}
	}
}

func TestNewDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Chart.SkipInvalidStreams {
		t.Error("skip_invalid_streams should default to false")
	}
	if cfg.Sync.Schedule != "@every 10m" {
		t.Errorf("schedule = %q", cfg.Sync.Schedule)
	}
}
