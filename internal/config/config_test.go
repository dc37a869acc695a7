package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.General.Account != "default" {
		t.Errorf("Account = %q, want %q", cfg.General.Account, "default")
	}
	if cfg.General.PollIntervalSeconds != 120 {
		t.Errorf("PollIntervalSeconds = %d, want 120", cfg.General.PollIntervalSeconds)
	}
	if cfg.Gmail.LabelPrefix != "AI-" {
		t.Errorf("LabelPrefix = %q, want %q", cfg.Gmail.LabelPrefix, "AI-")
	}
	if cfg.Server.Port != 8085 {
		t.Errorf("Port = %d, want 8085", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9090 {
		t.Errorf("MetricsPort = %d, want 9090", cfg.Server.MetricsPort)
	}
	if cfg.Sheets.Range != "Sheet1!A:H" {
		t.Errorf("Range = %q, want %q", cfg.Sheets.Range, "Sheet1!A:H")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Defaults() should validate, got %v", err)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
general:
  account: work
  pollIntervalSeconds: 60
server:
  port: 9000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.General.Account != "work" {
		t.Errorf("Account = %q, want %q", cfg.General.Account, "work")
	}
	if cfg.General.PollIntervalSeconds != 60 {
		t.Errorf("PollIntervalSeconds = %d, want 60", cfg.General.PollIntervalSeconds)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	// Untouched keys keep their defaults
	if cfg.General.MaxBatch != 10 {
		t.Errorf("MaxBatch = %d, want default 10", cfg.General.MaxBatch)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	os.Setenv("TEST_GEMINI_KEY", "secret-key")
	defer os.Unsetenv("TEST_GEMINI_KEY")

	path := writeConfig(t, `
models:
  gemini:
    apiKey: ${TEST_GEMINI_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Models.Gemini.APIKey != "secret-key" {
		t.Errorf("APIKey = %q, want %q", cfg.Models.Gemini.APIKey, "secret-key")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
general:
  pollIntervalSeconds: 1
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail validation")
	}
	if !strings.Contains(err.Error(), "pollIntervalSeconds") {
		t.Errorf("error should mention pollIntervalSeconds, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errContains string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:        "poll interval too small",
			mutate:      func(cfg *Config) { cfg.General.PollIntervalSeconds = 5 },
			wantErr:     true,
			errContains: "pollIntervalSeconds",
		},
		{
			name:        "batch size too large",
			mutate:      func(cfg *Config) { cfg.General.MaxBatch = 500 },
			wantErr:     true,
			errContains: "maxBatch",
		},
		{
			name:        "invalid log level",
			mutate:      func(cfg *Config) { cfg.General.LogLevel = "verbose" },
			wantErr:     true,
			errContains: "logLevel",
		},
		{
			name:        "port out of range",
			mutate:      func(cfg *Config) { cfg.Server.Port = 70000 },
			wantErr:     true,
			errContains: "server.port",
		},
		{
			name: "metrics port collides with api port",
			mutate: func(cfg *Config) {
				cfg.Server.Port = 8085
				cfg.Server.MetricsPort = 8085
			},
			wantErr:     true,
			errContains: "metricsPort",
		},
		{
			name:        "empty label prefix",
			mutate:      func(cfg *Config) { cfg.Gmail.LabelPrefix = "" },
			wantErr:     true,
			errContains: "labelPrefix",
		},
		{
			name: "sender rule missing category",
			mutate: func(cfg *Config) {
				cfg.Gmail.SenderRules = []SenderRule{{Contains: "example.com"}}
			},
			wantErr:     true,
			errContains: "senderRules",
		},
		{
			name: "telegram enabled without token",
			mutate: func(cfg *Config) {
				cfg.Telegram.Enabled = true
				cfg.Telegram.ChatID = 12345
			},
			wantErr:     true,
			errContains: "telegram.token",
		},
		{
			name: "telegram enabled without chat id",
			mutate: func(cfg *Config) {
				cfg.Telegram.Enabled = true
				cfg.Telegram.Token = "123:abc"
			},
			wantErr:     true,
			errContains: "telegram.chatId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("TEST_EXPAND_VAR", "value")
	defer os.Unsetenv("TEST_EXPAND_VAR")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_EXPAND_VAR}", "value"},
		{"prefix-${TEST_EXPAND_VAR}-suffix", "prefix-value-suffix"},
		{"${UNSET_VAR_XYZ:-fallback}", "fallback"},
		{"${UNSET_VAR_XYZ}", "${UNSET_VAR_XYZ}"},
		{"no vars here", "no vars here"},
	}

	for _, tt := range tests {
		if got := ExpandEnvVars(tt.input); got != tt.want {
			t.Errorf("ExpandEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStorageConfig_Paths(t *testing.T) {
	s := StorageConfig{DataDir: "/tmp/inboxpilot-test"}

	if got := s.SeenFile(); got != "/tmp/inboxpilot-test/processed_emails.json" {
		t.Errorf("SeenFile() = %q", got)
	}
	if got := s.SessionsFile(); got != "/tmp/inboxpilot-test/sessions.json" {
		t.Errorf("SessionsFile() = %q", got)
	}
	if got := s.RemindersFile(); got != "/tmp/inboxpilot-test/reminders.json" {
		t.Errorf("RemindersFile() = %q", got)
	}
}

func TestServerConfig_Addrs(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8085, MetricsPort: 9090}

	if got := s.Addr(); got != "0.0.0.0:8085" {
		t.Errorf("Addr() = %q, want %q", got, "0.0.0.0:8085")
	}
	if got := s.MetricsAddr(); got != "0.0.0.0:9090" {
		t.Errorf("MetricsAddr() = %q, want %q", got, "0.0.0.0:9090")
	}
}
