package config

// Defaults returns a Config populated with sensible defaults. Load overlays
// the config file on top of this.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Account:             "default",
			LogLevel:            "info",
			PollIntervalSeconds: 120,
			MaxBatch:            10,
		},
		Gmail: GmailConfig{
			LabelPrefix: "AI-",
			SenderRules: defaultSenderRules(),
		},
		Models: ModelsConfig{
			Classifier: AdapterConfig{
				URL:            "http://localhost:8001/classify",
				TimeoutSeconds: 30,
			},
			Extractor: AdapterConfig{
				URL:            "http://localhost:8002/extract",
				TimeoutSeconds: 30,
			},
			Gemini: GeminiConfig{
				Model:          "gemini-2.0-flash",
				TimeoutSeconds: 60,
			},
		},
		Sheets: SheetsConfig{
			Range: "Sheet1!A:H",
		},
		Telegram: TelegramConfig{
			Enabled: false,
		},
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8085,
			MetricsPort: 9090,
		},
		Storage: StorageConfig{
			DataDir: "~/.inboxpilot",
		},
	}
}

func defaultSenderRules() []SenderRule {
	return []SenderRule{
		{Contains: "classroom.google.com", Category: "academic"},
	}
}
