// Package pipeline runs summary cycles: fetch recent content for a user's
// verified competitors, summarize it per platform, render the report, record
// the run and email the result. It also hosts the re-notification sweep and
// its cron schedule.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/socialpulse/internal/fetcher"
	"github.com/sakif/socialpulse/internal/metrics"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/summarizer"
)

// Triggers label what started a cycle.
const (
	TriggerAPI   = "api"
	TriggerSweep = "sweep"
	TriggerCLI   = "cli"
)

// AccountStore reads the account and records the cycle time.
type AccountStore interface {
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	SetLastSummaryAt(ctx context.Context, username string, at time.Time) error
}

// EntryLister loads a user's competitor list.
type EntryLister interface {
	ListByUsername(ctx context.Context, username string) ([]model.CompetitorEntry, error)
}

// ContentFetcher returns in-window content for one handle.
type ContentFetcher interface {
	Fetch(ctx context.Context, platform model.Platform, handle string) fetcher.FetchResult
}

// TrendSummarizer turns content into one Trend per call.
type TrendSummarizer interface {
	Summarize(ctx context.Context, platform model.Platform, items []model.ContentItem) (*model.Trend, error)
}

// ReportDeliverer emails a rendered report.
type ReportDeliverer interface {
	Deliver(ctx context.Context, username, html string) error
}

// Cycle is the per-run context passed through every step.
type Cycle struct {
	Username string
	Entries  []model.CompetitorEntry
	Now      time.Time
}

// HandleError records a failed fetch for one handle.
type HandleError struct {
	Handle string
	Err    error
}

// PlatformOutcome is what happened for one platform in a cycle.
type PlatformOutcome struct {
	Platform model.Platform
	Handles  []string
	Items    int
	// FetchErrors lists handles whose fetch failed; the others still count.
	FetchErrors []HandleError
	// Trend is nil when SummaryErr is set or no handle was tracked.
	Trend      *model.Trend
	SummaryErr error
}

// CycleResult is the observable outcome of a summary cycle. The cycle itself
// succeeded when it returns a non-nil result; the error fields describe the
// degraded steps.
type CycleResult struct {
	Username    string
	Report      *model.TrendReport
	Platforms   []PlatformOutcome
	EntriesErr  error
	PersistErr  error
	DeliveryErr error
}

// Warnings flattens every recorded failure into user-facing strings.
func (r *CycleResult) Warnings() []string {
	var out []string
	if r.EntriesErr != nil {
		out = append(out, fmt.Sprintf("could not load competitors: %v", r.EntriesErr))
	}
	for _, p := range r.Platforms {
		for _, fe := range p.FetchErrors {
			out = append(out, fmt.Sprintf("%s: fetching %s failed: %v", p.Platform.DisplayName(), fe.Handle, fe.Err))
		}
		if p.SummaryErr != nil && !errors.Is(p.SummaryErr, summarizer.ErrNoContent) {
			out = append(out, fmt.Sprintf("%s: no trend produced: %v", p.Platform.DisplayName(), p.SummaryErr))
		}
	}
	if r.PersistErr != nil {
		out = append(out, fmt.Sprintf("could not record summary time: %v", r.PersistErr))
	}
	if r.DeliveryErr != nil {
		out = append(out, fmt.Sprintf("report email not delivered: %v", r.DeliveryErr))
	}
	return out
}

// Orchestrator runs summary cycles.
type Orchestrator struct {
	accounts   AccountStore
	entries    EntryLister
	fetcher    ContentFetcher
	summarizer TrendSummarizer
	notifier   ReportDeliverer
	renderer   *Renderer
	now        func() time.Time
	logger     *slog.Logger

	inflight singleflight.Group
}

// Deps bundles the Orchestrator's collaborators.
type Deps struct {
	Accounts   AccountStore
	Entries    EntryLister
	Fetcher    ContentFetcher
	Summarizer TrendSummarizer
	Notifier   ReportDeliverer
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps Deps, logger *slog.Logger) *Orchestrator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		accounts:   deps.Accounts,
		entries:    deps.Entries,
		fetcher:    deps.Fetcher,
		summarizer: deps.Summarizer,
		notifier:   deps.Notifier,
		renderer:   NewRenderer(),
		now:        now,
		logger:     logger,
	}
}

// RunSummaryCycle runs a cycle for username on behalf of an API request.
func (o *Orchestrator) RunSummaryCycle(ctx context.Context, username string) (*CycleResult, error) {
	return o.Run(ctx, username, TriggerAPI)
}

// Run runs a cycle for username.
//
// Concurrent calls for the same username share one run: the later callers
// wait for the first and receive its result, so the user gets one email. The
// shared run uses the first caller's context.
//
// Only an unknown account returns an error. Every other failure is recorded
// in the CycleResult and the cycle carries on.
func (o *Orchestrator) Run(ctx context.Context, username, trigger string) (*CycleResult, error) {
	v, err, shared := o.inflight.Do(username, func() (any, error) {
		return o.run(ctx, username, trigger)
	})
	if shared {
		o.logger.Debug("joined in-flight summary cycle", slog.String("username", username))
	}
	if err != nil {
		return nil, err
	}
	return v.(*CycleResult), nil
}

func (o *Orchestrator) run(ctx context.Context, username, trigger string) (*CycleResult, error) {
	start := time.Now()

	if _, err := o.accounts.GetByUsername(ctx, username); err != nil {
		metrics.RecordCycle(trigger, "aborted", time.Since(start))
		return nil, fmt.Errorf("pipeline: loading account %s: %w", username, err)
	}

	cycle := Cycle{Username: username, Now: o.now().UTC()}
	result := &CycleResult{Username: username}

	entries, err := o.entries.ListByUsername(ctx, username)
	if err != nil {
		result.EntriesErr = err
		o.logger.Warn("loading competitors failed, continuing with an empty list",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	} else {
		cycle.Entries = entries
	}

	handles := partitionHandles(cycle.Entries)
	sections := make(map[model.Platform]model.Trend, len(model.Platforms))
	for _, platform := range model.Platforms {
		outcome := o.summarizePlatform(ctx, platform, handles[platform])
		if outcome.Trend != nil {
			sections[platform] = *outcome.Trend
		}
		result.Platforms = append(result.Platforms, outcome)
	}

	html, err := o.renderer.Render(sections)
	if err != nil {
		// the template is static; this only fails on a programming error
		return nil, fmt.Errorf("pipeline: rendering report: %w", err)
	}
	result.Report = &model.TrendReport{
		Username:    username,
		Sections:    sections,
		HTML:        html,
		GeneratedAt: cycle.Now,
	}

	if err := o.accounts.SetLastSummaryAt(ctx, username, cycle.Now); err != nil {
		result.PersistErr = err
		o.logger.Warn("recording summary time failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	}

	if err := o.notifier.Deliver(ctx, username, html); err != nil {
		result.DeliveryErr = err
	}

	status := "ok"
	if len(result.Warnings()) > 0 {
		status = "degraded"
	}
	metrics.RecordCycle(trigger, status, time.Since(start))
	o.logger.Info("summary cycle finished",
		slog.String("username", username),
		slog.String("trigger", trigger),
		slog.String("status", status),
		slog.Int("entries", len(cycle.Entries)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// summarizePlatform fetches every handle in turn and makes one summary call
// over the combined items.
func (o *Orchestrator) summarizePlatform(ctx context.Context, platform model.Platform, handles []string) PlatformOutcome {
	outcome := PlatformOutcome{Platform: platform, Handles: handles}
	if len(handles) == 0 {
		return outcome
	}

	var items []model.ContentItem
	for _, h := range handles {
		res := o.fetcher.Fetch(ctx, platform, h)
		if res.Err != nil {
			outcome.FetchErrors = append(outcome.FetchErrors, HandleError{Handle: h, Err: res.Err})
			continue
		}
		items = append(items, res.Items...)
	}
	outcome.Items = len(items)

	trend, err := o.summarizer.Summarize(ctx, platform, items)
	if err != nil {
		outcome.SummaryErr = err
		return outcome
	}
	if trend == nil {
		outcome.SummaryErr = errors.New("pipeline: summarizer returned no trend")
		return outcome
	}
	outcome.Trend = trend
	return outcome
}

// partitionHandles collects each platform's handles from actionable entries,
// in list order and without duplicates.
func partitionHandles(entries []model.CompetitorEntry) map[model.Platform][]string {
	out := make(map[model.Platform][]string, len(model.Platforms))
	seen := make(map[model.Platform]map[string]bool, len(model.Platforms))
	for _, p := range model.Platforms {
		seen[p] = make(map[string]bool)
	}
	for _, e := range entries {
		if !e.Actionable() {
			continue
		}
		for _, p := range model.Platforms {
			h := e.Handle(p)
			if h == "" || seen[p][h] {
				continue
			}
			seen[p][h] = true
			out[p] = append(out[p], h)
		}
	}
	return out
}
