package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/agent"
	"github.com/teemow/inboxpilot/internal/calendar"
	"github.com/teemow/inboxpilot/internal/classify"
	"github.com/teemow/inboxpilot/internal/config"
	"github.com/teemow/inboxpilot/internal/dedup"
	"github.com/teemow/inboxpilot/internal/extract"
	"github.com/teemow/inboxpilot/internal/gmail"
	"github.com/teemow/inboxpilot/internal/google"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/notify"
	"github.com/teemow/inboxpilot/internal/planner"
	"github.com/teemow/inboxpilot/internal/reminder"
	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/sessionlog"
	"github.com/teemow/inboxpilot/internal/sheets"
	"github.com/teemow/inboxpilot/internal/style"
	"github.com/teemow/inboxpilot/internal/tools"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var httpAddr string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mail agent with its HTTP API",
		Long: `Start the long-running agent: poll the Gmail inbox on a fixed interval,
run every new message through the classify/extract/plan/execute pipeline,
and serve the JSON API the browser extension talks to.

Prometheus metrics are served on a separate port (default :9090).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, httpAddr, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to the configuration file")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "Listen address for the JSON API (overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Listen address for Prometheus metrics (overrides config)")
	return cmd
}

func runServe(configPath, httpAddr, metricsAddr string) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if httpAddr == "" {
		httpAddr = cfg.Server.Addr()
	}
	if metricsAddr == "" {
		metricsAddr = cfg.Server.MetricsAddr()
	}

	logger := newLogger(cfg.General.LogLevel)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("Instrumentation shutdown failed", "error", err)
		}
	}()
	metrics := provider.Metrics()

	// Start the metrics server on its own port and wait until it is
	// actually listening before wiring anything that records metrics.
	var metricsServer *server.MetricsServer
	if provider.Enabled() && cfg.Server.MetricsPort != 0 {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("Metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	audit := instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)

	monitor, processor, analyzer, sessions, err := buildAgent(shutdownCtx, cfg, metrics, audit, logger)
	if err != nil {
		return err
	}

	serverContext := server.NewServerContext(shutdownCtx)
	serverContext.SetInstrumentation(metrics, audit)

	mux := http.NewServeMux()
	server.NewAPI(monitor, processor, sessions, analyzer, metrics, logger).Register(mux)

	healthChecker := server.NewHealthChecker(serverContext)
	healthChecker.AddCheck("agent", func() error {
		if !monitor.Status().Running {
			return fmt.Errorf("monitor not running")
		}
		return nil
	})
	healthChecker.AddCheck("storage", storageWritableCheck(cfg.Storage.DataDir))
	healthChecker.RegisterHealthEndpoints(mux)

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	go monitor.Run(shutdownCtx)
	healthChecker.SetReady(true)
	logger.Info("Agent started",
		"account", cfg.General.Account,
		"poll_interval", time.Duration(cfg.General.PollIntervalSeconds)*time.Second)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-shutdownCtx.Done():
		logger.Info("Shutdown signal received, stopping")
	}

	healthChecker.SetReady(false)
	if err := serverContext.Shutdown(); err != nil {
		logger.Error("Server context shutdown failed", "error", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer stopCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(stopCtx); err != nil {
			logger.Error("Metrics server shutdown failed", "error", err)
		}
	}
	if err := httpServer.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}

// buildAgent wires the Google clients, model adapters, stores and tool
// executors into the monitor, processor and style analyzer.
func buildAgent(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger, logger *slog.Logger) (*agent.Monitor, *agent.Processor, *style.Analyzer, *sessionlog.Log, error) {
	account := cfg.General.Account

	if err := google.MigrateDefaultToken(); err != nil {
		logger.Warn("Legacy token migration failed", "error", err)
	}

	gmailClient, err := gmail.NewClientForAccount(ctx, account)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("gmail client: %w\n\n%s", err, google.GetAuthenticationErrorMessage(account))
	}
	calClient, err := calendar.NewClientForAccount(ctx, account)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("calendar client: %w", err)
	}
	sheetClient, err := sheets.NewClientForAccount(ctx, account)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("sheets client: %w", err)
	}

	seen, err := dedup.NewStore(cfg.Storage.SeenFile())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("dedup store: %w", err)
	}
	sessions, err := sessionlog.NewLog(cfg.Storage.SessionsFile())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("session log: %w", err)
	}
	reminders, err := reminder.NewStore(cfg.Storage.RemindersFile())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("reminder store: %w", err)
	}

	classifier := classify.NewClient(
		cfg.Models.Classifier.URL,
		time.Duration(cfg.Models.Classifier.TimeoutSeconds)*time.Second,
		senderRules(cfg.Gmail.SenderRules),
	)
	extractor := extract.NewClient(
		cfg.Models.Extractor.URL,
		time.Duration(cfg.Models.Extractor.TimeoutSeconds)*time.Second,
	)

	apiKey := cfg.Models.Gemini.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	gemini := planner.NewGemini(
		apiKey,
		cfg.Models.Gemini.Model,
		cfg.Gmail.LabelPrefix,
		time.Duration(cfg.Models.Gemini.TimeoutSeconds)*time.Second,
	)

	var notifier notify.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("telegram notifier: %w", err)
		}
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	runner := tools.NewRunner(metrics, audit,
		tools.NewLabelExecutor(gmailClient, cfg.Gmail.LabelPrefix),
		tools.NewMarkReadExecutor(gmailClient),
		tools.NewEventExecutor(calClient, "primary"),
		tools.NewRowExecutor(sheetClient, cfg.Sheets.SpreadsheetID, cfg.Sheets.Range),
		tools.NewNotifyExecutor(notifier),
		tools.NewReminderExecutor(reminders),
	)

	processor := agent.NewProcessor(classifier, extractor, gemini, runner, sessions, seen, metrics, logger)
	monitor := agent.NewMonitor(
		processor,
		gmailClient,
		seen,
		time.Duration(cfg.General.PollIntervalSeconds)*time.Second,
		int64(cfg.General.MaxBatch),
		metrics,
		logger,
	)
	analyzer := style.NewAnalyzer(gemini, gmailClient)

	return monitor, processor, analyzer, sessions, nil
}

// storageWritableCheck reports whether the data directory accepts writes.
func storageWritableCheck(dataDir string) server.Check {
	return func() error {
		path := filepath.Join(config.ExpandPath(dataDir), ".healthcheck")
		if err := os.WriteFile(path, []byte("ok"), 0o600); err != nil {
			return fmt.Errorf("data dir not writable: %w", err)
		}
		return os.Remove(path)
	}
}

func senderRules(rules []config.SenderRule) []classify.Rule {
	out := make([]classify.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, classify.Rule{
			Contains: r.Contains,
			Category: classify.ParseCategory(r.Category),
		})
	}
	return out
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
