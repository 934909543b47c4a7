package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tracyhatemice/mailsentinel/internal/config"
	"github.com/tracyhatemice/mailsentinel/internal/mailbox"
	"github.com/tracyhatemice/mailsentinel/internal/monitor"
	"github.com/tracyhatemice/mailsentinel/internal/publish"
	"github.com/tracyhatemice/mailsentinel/internal/state"
)

func main() {
	var configPath string
	var once bool

	rootCmd := &cobra.Command{
		Use:   "mailsentinel",
		Short: "Infer liveness from mailbox freshness and publish it",
		Long: "mailsentinel watches mail accounts for messages from monitored " +
			"sources, reconciles the newest match against a persisted watermark, " +
			"classifies its age and publishes the category to MQTT or HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cfg, once)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single monitoring cycle and exit")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, once bool) error {
	logger := setupLogger(cfg.LogLevel)
	logger.Info("mailsentinel starting", "accounts", len(cfg.Accounts), "publisher", cfg.Publisher.Type)

	pub, err := newPublisher(cfg.Publisher, logger)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	defer pub.Close()

	var targets []monitor.Target
	for _, acct := range cfg.Accounts {
		box, err := newMailbox(acct, logger)
		if err != nil {
			logger.Error("failed to create mailbox, skipping account", "account", acct.Name, "error", err)
			continue
		}
		targets = append(targets, monitor.Target{Account: acct, Box: box})
	}
	if len(targets) == 0 {
		return fmt.Errorf("no usable accounts")
	}

	store := state.NewStore(cfg.StateFile)
	watermarks, err := store.Load()
	if err != nil {
		// Losing the watermarks only risks one cycle of false "no
		// signal"; keep going rather than abort.
		logger.Warn("state load failed, starting with empty watermarks", "error", err)
		watermarks = &state.File{}
	} else {
		logger.Info("loaded watermarks", "topics", len(watermarks.Topics))
	}

	mon := monitor.New(
		targets,
		pub,
		store,
		watermarks,
		monitor.NewRatingTable(cfg.Rating),
		cfg.PollInterval(),
		logger,
	)

	if once {
		mon.RunCycle()
		logger.Info("single cycle complete")
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mon.Run(ctx)
	logger.Info("mailsentinel stopped")
	return nil
}

func newMailbox(acct config.Account, logger *slog.Logger) (mailbox.Mailbox, error) {
	switch acct.Protocol {
	case "imap":
		return mailbox.NewIMAP(
			acct.Host, acct.Port,
			acct.Username, acct.Password,
			acct.UseTLS, acct.GetIMAPFolder(), acct.GetLookbackDays(), logger,
		), nil
	case "pop3":
		return mailbox.NewPOP3(
			acct.Host, acct.Port,
			acct.Username, acct.Password,
			acct.UseTLS, acct.GetLookbackDays(), logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", acct.Protocol)
	}
}

func newPublisher(cfg config.Publisher, logger *slog.Logger) (publish.Publisher, error) {
	switch cfg.Type {
	case "mqtt":
		return publish.NewMQTT(cfg.MQTT, logger)
	case "http":
		return publish.NewHTTP(cfg.HTTP, logger), nil
	case "none":
		return publish.Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported publisher type: %s", cfg.Type)
	}
}

func setupLogger(level string) *slog.Logger {
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
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
