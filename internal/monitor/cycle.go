package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/tracyhatemice/mailsentinel/internal/config"
	"github.com/tracyhatemice/mailsentinel/internal/mailbox"
	"github.com/tracyhatemice/mailsentinel/internal/publish"
	"github.com/tracyhatemice/mailsentinel/internal/state"
)

// Target pairs one monitored account with its mailbox reader.
type Target struct {
	Account config.Account
	Box     mailbox.Mailbox
}

// Monitor runs the liveness cycle: per account, scan the mailbox, reconcile
// against the persisted watermark, classify and publish the freshness label,
// then post-process the live message when the account asks for it. Accounts
// are processed sequentially; the watermark file is the only state carried
// across cycles and is saved at the end of each one.
type Monitor struct {
	targets    []Target
	publisher  publish.Publisher
	store      *state.Store
	watermarks *state.File
	table      RatingTable
	interval   time.Duration
	logger     *slog.Logger

	now func() time.Time
}

// New creates a Monitor over the given targets. watermarks is the state
// loaded at startup and stays owned by the Monitor from here on.
func New(targets []Target, pub publish.Publisher, store *state.Store, watermarks *state.File, table RatingTable, interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		targets:    targets,
		publisher:  pub,
		store:      store,
		watermarks: watermarks,
		table:      table,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one cycle immediately, then one per interval until ctx is
// cancelled. Cycles never overlap: the next tick waits for the previous
// cycle to finish.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("starting monitor",
		"accounts", len(m.targets),
		"interval", m.interval,
	)

	m.RunCycle()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			m.RunCycle()
		}
	}
}

// RunCycle processes every account once and persists the watermark file.
func (m *Monitor) RunCycle() {
	if len(m.targets) == 0 {
		return
	}
	for _, target := range m.targets {
		m.checkAccount(target)
	}

	if err := m.store.Save(m.watermarks); err != nil {
		// In-memory watermarks stay correct for the next cycle; only
		// durability across a restart is at risk.
		m.logger.Error("persist watermarks failed", "error", err)
	}
}

func (m *Monitor) checkAccount(target Target) {
	acct := target.Account
	m.logger.Debug("checking account", "account", acct.Name, "topic", acct.Topic)

	// Close must run even when the scan fails, or a connection opened
	// before the failure stays cached and poisons every later cycle.
	defer func() {
		if err := target.Box.Close(); err != nil {
			m.logger.Warn("mailbox close failed", "account", acct.Name, "error", err)
		}
	}()

	msgs, err := target.Box.ListCandidates()
	if err != nil {
		m.logger.Error("mailbox scan failed, skipping account",
			"account", acct.Name,
			"error", err,
		)
		return
	}

	now := m.now()
	candidates := SelectCandidates(msgs, acct)
	obs := BuildObservation(candidates, now)
	outcome := Reconcile(obs, m.watermarks.FindTopic(acct.Topic), now)

	if outcome.AdvanceWatermark {
		m.watermarks.Upsert(acct.Topic, obs.Timestamp)
	}

	label := m.table.Classify(outcome.ReportedAgeDays)
	m.logger.Info("freshness resolved",
		"account", acct.Name,
		"topic", acct.Topic,
		"ageDays", outcome.ReportedAgeDays,
		"label", label,
		"found", outcome.ReportedFound,
	)

	if err := m.publisher.Publish(acct.Topic, label); err != nil {
		// Best effort: publishing does not participate in watermark
		// decisions and is not retried within the cycle.
		m.logger.Error("publish failed", "topic", acct.Topic, "error", err)
	}

	if outcome.ShouldPostProcess {
		m.postProcess(target, *outcome.Message)
	}
}

func (m *Monitor) postProcess(target Target, msg mailbox.Message) {
	acct := target.Account

	if acct.MarkRead {
		if err := target.Box.MarkRead(msg); err != nil {
			m.logger.Error("mark read failed", "account", acct.Name, "error", err)
		} else {
			m.logger.Debug("marked read", "account", acct.Name, "subject", msg.Subject)
		}
	}

	if acct.MoveToFolder != "" {
		if err := target.Box.MoveTo(msg, acct.MoveToFolder); err != nil {
			m.logger.Error("move failed",
				"account", acct.Name,
				"folder", acct.MoveToFolder,
				"error", err,
			)
		} else {
			m.logger.Debug("moved message",
				"account", acct.Name,
				"folder", acct.MoveToFolder,
				"subject", msg.Subject,
			)
		}
	}
}
