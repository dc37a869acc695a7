package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/agent"
	"github.com/teemow/inboxpilot/internal/config"
	"github.com/teemow/inboxpilot/internal/gmail"
	"github.com/teemow/inboxpilot/internal/google"
)

func newCheckCmd() *cobra.Command {
	var configPath string
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Process new mail once and exit",
		Long: `Run a single pass over the inbox: every unprocessed message received
within the --since window goes through the full classify/extract/plan/execute
pipeline. Messages already in the processed store are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, configPath, since)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to the configuration file")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "How far back to look for new mail")
	return cmd
}

func runCheck(cmd *cobra.Command, configPath string, since time.Duration) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.General.LogLevel)
	slog.SetDefault(logger)

	_, processor, _, _, err := buildAgent(ctx, cfg, nil, nil, logger)
	if err != nil {
		return err
	}

	mail, err := gmail.NewClientForAccount(ctx, cfg.General.Account)
	if err != nil {
		return fmt.Errorf("gmail client: %w\n\n%s", err, google.GetAuthenticationErrorMessage(cfg.General.Account))
	}

	envelopes, err := mail.EnvelopesSince(time.Now().Add(-since), int64(cfg.General.MaxBatch))
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}

	processed, skipped := 0, 0
	for _, env := range envelopes {
		rec, err := processor.Process(ctx, env)
		if errors.Is(err, agent.ErrAlreadyProcessed) {
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to process message %s: %w", env.ID, err)
		}
		processed++
		fmt.Printf("%s  %-10s %-9s %q\n", env.ID, rec.Category, rec.Status, env.Subject)
	}

	fmt.Printf("Processed %d message(s), skipped %d already seen\n", processed, skipped)
	return nil
}
