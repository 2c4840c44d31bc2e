package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/socialpulse/internal/config"
	"github.com/sakif/socialpulse/internal/model"
)

type fakeLister struct {
	accounts []model.Account
	err      error
}

func (f *fakeLister) ListSummarized(context.Context) ([]model.Account, error) {
	return f.accounts, f.err
}

type fakeRunner struct {
	mu   sync.Mutex
	runs []string
	errs map[string]error
}

func (f *fakeRunner) Run(_ context.Context, username, trigger string) (*CycleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if trigger != TriggerSweep {
		return nil, errors.New("unexpected trigger " + trigger)
	}
	f.runs = append(f.runs, username)
	if err := f.errs[username]; err != nil {
		return nil, err
	}
	return &CycleResult{Username: username}, nil
}

func summarizedAgo(username string, ago time.Duration) model.Account {
	at := fixedNow.Add(-ago)
	return model.Account{Username: username, LastSummaryAt: &at}
}

func TestDue(t *testing.T) {
	threshold := 48 * time.Hour
	tests := []struct {
		name   string
		policy string
		ago    time.Duration
		want   bool
	}{
		{"recent within threshold", config.PolicyRecent, 10 * time.Hour, true},
		{"recent at threshold", config.PolicyRecent, 48 * time.Hour, true},
		{"recent past threshold", config.PolicyRecent, 72 * time.Hour, false},
		{"recent in the future", config.PolicyRecent, -time.Hour, true},
		{"overdue within threshold", config.PolicyOverdue, 10 * time.Hour, false},
		{"overdue at threshold", config.PolicyOverdue, 48 * time.Hour, true},
		{"overdue past threshold", config.PolicyOverdue, 72 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Due(tt.policy, fixedNow.Add(-tt.ago), fixedNow, threshold)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResendDueSummaries_RecentPolicySkipsOldAccounts(t *testing.T) {
	lister := &fakeLister{accounts: []model.Account{
		summarizedAgo("old", 72*time.Hour),
		summarizedAgo("fresh", 12*time.Hour),
	}}
	runner := &fakeRunner{}
	s := NewSweeper(lister, runner, SweepOptions{Now: func() time.Time { return fixedNow }}, newTestLogger())

	res := s.ResendDueSummaries(context.Background())

	assert.Equal(t, []string{"fresh"}, runner.runs)
	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 1, res.Due)
	assert.Equal(t, []string{"fresh"}, res.Resent)
	assert.Empty(t, res.Failures)
}

func TestResendDueSummaries_OverduePolicy(t *testing.T) {
	lister := &fakeLister{accounts: []model.Account{
		summarizedAgo("old", 72*time.Hour),
		summarizedAgo("fresh", 12*time.Hour),
	}}
	runner := &fakeRunner{}
	s := NewSweeper(lister, runner, SweepOptions{
		Policy:    config.PolicyOverdue,
		Threshold: 48 * time.Hour,
		Now:       func() time.Time { return fixedNow },
	}, newTestLogger())

	res := s.ResendDueSummaries(context.Background())

	assert.Equal(t, []string{"old"}, runner.runs)
	assert.Equal(t, []string{"old"}, res.Resent)
}

func TestResendDueSummaries_FailureDoesNotStopSweep(t *testing.T) {
	lister := &fakeLister{accounts: []model.Account{
		summarizedAgo("a", time.Hour),
		summarizedAgo("b", time.Hour),
		summarizedAgo("c", time.Hour),
	}}
	runner := &fakeRunner{errs: map[string]error{"b": errors.New("account vanished")}}
	s := NewSweeper(lister, runner, SweepOptions{Now: func() time.Time { return fixedNow }}, newTestLogger())

	res := s.ResendDueSummaries(context.Background())

	assert.Equal(t, []string{"a", "b", "c"}, runner.runs)
	assert.Equal(t, []string{"a", "c"}, res.Resent)
	require.Contains(t, res.Failures, "b")
	assert.EqualError(t, res.Failures["b"], "account vanished")
}

func TestResendDueSummaries_ListError(t *testing.T) {
	runner := &fakeRunner{}
	s := NewSweeper(&fakeLister{err: errors.New("no such table")}, runner, SweepOptions{}, newTestLogger())

	res := s.ResendDueSummaries(context.Background())

	assert.Error(t, res.ListErr)
	assert.Empty(t, runner.runs)
}

func TestResendDueSummaries_CancelledContext(t *testing.T) {
	lister := &fakeLister{accounts: []model.Account{summarizedAgo("a", time.Hour)}}
	runner := &fakeRunner{}
	s := NewSweeper(lister, runner, SweepOptions{Now: func() time.Time { return fixedNow }}, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := s.ResendDueSummaries(ctx)

	assert.Empty(t, runner.runs)
	assert.ErrorIs(t, res.Failures["a"], context.Canceled)
}
