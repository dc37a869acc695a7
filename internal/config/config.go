// Package config loads and validates the assistant configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for inboxpilot.
type Config struct {
	General  GeneralConfig  `yaml:"general"`
	Gmail    GmailConfig    `yaml:"gmail"`
	Models   ModelsConfig   `yaml:"models"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Telegram TelegramConfig `yaml:"telegram"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
}

// GeneralConfig holds settings that apply to the whole agent.
type GeneralConfig struct {
	Account             string `yaml:"account"`
	LogLevel            string `yaml:"logLevel"`
	PollIntervalSeconds int    `yaml:"pollIntervalSeconds"`
	MaxBatch            int    `yaml:"maxBatch"`
}

// GmailConfig configures mailbox behaviour.
type GmailConfig struct {
	// LabelPrefix is prepended to category names when creating Gmail labels,
	// e.g. "AI-" yields "AI-Job" for the job category.
	LabelPrefix string       `yaml:"labelPrefix"`
	SenderRules []SenderRule `yaml:"senderRules,omitempty"`
}

// SenderRule short-circuits classification when the sender address contains
// the given substring.
type SenderRule struct {
	Contains string `yaml:"contains"`
	Category string `yaml:"category"`
}

// ModelsConfig configures the model adapters used by the pipeline.
type ModelsConfig struct {
	Classifier AdapterConfig `yaml:"classifier"`
	Extractor  AdapterConfig `yaml:"extractor"`
	Gemini     GeminiConfig  `yaml:"gemini"`
}

// AdapterConfig configures an HTTP model adapter.
type AdapterConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// GeminiConfig configures the Gemini planner.
type GeminiConfig struct {
	APIKey         string `yaml:"apiKey"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// SheetsConfig configures the job application tracking spreadsheet.
type SheetsConfig struct {
	SpreadsheetID string `yaml:"spreadsheetId"`
	Range         string `yaml:"range"`
}

// TelegramConfig configures outbound notifications.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chatId"`
}

// ServerConfig configures the HTTP API and metrics listeners.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metricsPort"`
}

// StorageConfig configures where the agent keeps its state files.
type StorageConfig struct {
	DataDir string `yaml:"dataDir"`
}

// Addr returns the listen address for the HTTP API.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MetricsAddr returns the listen address for the Prometheus endpoint.
func (s ServerConfig) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.MetricsPort)
}

// SeenFile returns the path of the processed-message dedup store.
func (s StorageConfig) SeenFile() string {
	return filepath.Join(ExpandPath(s.DataDir), "processed_emails.json")
}

// SessionsFile returns the path of the session log.
func (s StorageConfig) SessionsFile() string {
	return filepath.Join(ExpandPath(s.DataDir), "sessions.json")
}

// RemindersFile returns the path of the reminder store.
func (s StorageConfig) RemindersFile() string {
	return filepath.Join(ExpandPath(s.DataDir), "reminders.json")
}

// DefaultConfigDir returns the default config directory (~/.inboxpilot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".inboxpilot"
	}
	return filepath.Join(home, ".inboxpilot")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Load reads, expands and validates the config file at path. Missing keys
// fall back to Defaults.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Storage.DataDir = ExpandPath(cfg.Storage.DataDir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// Save writes the config to path as YAML.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.PollIntervalSeconds < 10 {
		errs = append(errs, "general.pollIntervalSeconds must be >= 10")
	}
	if cfg.General.MaxBatch < 1 || cfg.General.MaxBatch > 100 {
		errs = append(errs, "general.maxBatch must be between 1 and 100")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 0 and 65535")
	}
	if cfg.Server.Port != 0 && cfg.Server.Port == cfg.Server.MetricsPort {
		errs = append(errs, "server.metricsPort must differ from server.port")
	}

	if cfg.Gmail.LabelPrefix == "" {
		errs = append(errs, "gmail.labelPrefix must not be empty")
	}
	for i, rule := range cfg.Gmail.SenderRules {
		if rule.Contains == "" {
			errs = append(errs, fmt.Sprintf("gmail.senderRules[%d].contains must not be empty", i))
		}
		if rule.Category == "" {
			errs = append(errs, fmt.Sprintf("gmail.senderRules[%d].category must not be empty", i))
		}
	}

	if cfg.Models.Classifier.TimeoutSeconds < 1 {
		errs = append(errs, "models.classifier.timeoutSeconds must be >= 1")
	}
	if cfg.Models.Extractor.TimeoutSeconds < 1 {
		errs = append(errs, "models.extractor.timeoutSeconds must be >= 1")
	}
	if cfg.Models.Gemini.TimeoutSeconds < 1 {
		errs = append(errs, "models.gemini.timeoutSeconds must be >= 1")
	}
	if cfg.Models.Gemini.Model == "" {
		errs = append(errs, "models.gemini.model must not be empty")
	}

	if cfg.Telegram.Enabled {
		if cfg.Telegram.Token == "" {
			errs = append(errs, "telegram.token is required when telegram is enabled")
		}
		if cfg.Telegram.ChatID == 0 {
			errs = append(errs, "telegram.chatId is required when telegram is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
