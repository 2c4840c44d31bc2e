// Package repository declares the persistence contracts used by the service
// and pipeline layers. The sqlite subpackage implements them.
package repository

import (
	"context"
	"time"

	"github.com/sakif/socialpulse/internal/model"
)

// AccountRepository is the Credential Store.
type AccountRepository interface {
	// Create inserts a new account. A duplicate username returns
	// apperror.ErrConflict.
	Create(ctx context.Context, account *model.Account) error
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	UpdateHandles(ctx context.Context, username, youtube, instagram string) error
	SetLastSummaryAt(ctx context.Context, username string, at time.Time) error
	// ListSummarized returns every account whose last summary timestamp is set.
	ListSummarized(ctx context.Context) ([]model.Account, error)
}

// CompetitorRepository is the Competitor Registry.
type CompetitorRepository interface {
	ListByUsername(ctx context.Context, username string) ([]model.CompetitorEntry, error)
	// ReplaceAll swaps the user's whole list in one transaction.
	// Concurrent calls serialize; the last one to commit wins.
	ReplaceAll(ctx context.Context, username string, entries []model.CompetitorEntry) ([]model.CompetitorEntry, error)
	// Upsert writes a single entry keyed by its ID.
	Upsert(ctx context.Context, entry *model.CompetitorEntry) error
	GetByID(ctx context.Context, username, id string) (*model.CompetitorEntry, error)
	Delete(ctx context.Context, username, id string) error
}
