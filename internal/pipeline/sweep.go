package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/socialpulse/internal/config"
	"github.com/sakif/socialpulse/internal/model"
)

// SummarizedLister lists accounts that have completed at least one cycle.
type SummarizedLister interface {
	ListSummarized(ctx context.Context) ([]model.Account, error)
}

// CycleRunner runs one summary cycle.
type CycleRunner interface {
	Run(ctx context.Context, username, trigger string) (*CycleResult, error)
}

// SweepResult reports what one sweep did.
type SweepResult struct {
	Checked int
	Due     int
	Resent  []string
	// Failures maps username to the error that aborted its cycle.
	Failures map[string]error
	ListErr  error
}

// Sweeper re-runs summary cycles for accounts selected by the resend policy.
type Sweeper struct {
	accounts  SummarizedLister
	runner    CycleRunner
	policy    string
	threshold time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// SweepOptions configures a Sweeper.
type SweepOptions struct {
	Policy    string
	Threshold time.Duration
	Now       func() time.Time
}

// NewSweeper creates a Sweeper. An empty policy means config.PolicyRecent and a
// non-positive threshold means 48 hours.
func NewSweeper(accounts SummarizedLister, runner CycleRunner, opts SweepOptions, logger *slog.Logger) *Sweeper {
	if opts.Policy == "" {
		opts.Policy = config.PolicyRecent
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 48 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sweeper{
		accounts:  accounts,
		runner:    runner,
		policy:    opts.Policy,
		threshold: opts.Threshold,
		now:       opts.Now,
		logger:    logger,
	}
}

// Due reports whether an account last summarized at last should be re-run.
// Under the recent policy a last time in the future counts as due.
func Due(policy string, last, now time.Time, threshold time.Duration) bool {
	elapsed := now.Sub(last)
	switch policy {
	case config.PolicyOverdue:
		return elapsed >= threshold
	default:
		return elapsed <= threshold
	}
}

// ResendDueSummaries runs a cycle for every due account, one at a time. A
// failing account is recorded and the sweep moves on.
func (s *Sweeper) ResendDueSummaries(ctx context.Context) SweepResult {
	result := SweepResult{Failures: make(map[string]error)}

	accounts, err := s.accounts.ListSummarized(ctx)
	if err != nil {
		result.ListErr = fmt.Errorf("pipeline: listing summarized accounts: %w", err)
		s.logger.Error("resend sweep aborted", slog.String("error", err.Error()))
		return result
	}

	now := s.now()
	for _, acc := range accounts {
		if err := ctx.Err(); err != nil {
			result.Failures[acc.Username] = err
			continue
		}
		result.Checked++
		if acc.LastSummaryAt == nil || !Due(s.policy, *acc.LastSummaryAt, now, s.threshold) {
			continue
		}
		result.Due++

		if _, err := s.runner.Run(ctx, acc.Username, TriggerSweep); err != nil {
			result.Failures[acc.Username] = err
			s.logger.Warn("resend failed",
				slog.String("username", acc.Username),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.Resent = append(result.Resent, acc.Username)
	}

	s.logger.Info("resend sweep finished",
		slog.String("policy", s.policy),
		slog.Int("checked", result.Checked),
		slog.Int("due", result.Due),
		slog.Int("resent", len(result.Resent)),
		slog.Int("failed", len(result.Failures)),
	)
	return result
}
