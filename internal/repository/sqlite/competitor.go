package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/socialpulse/internal/apperror"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/repository"
)

// compile-time check that *DB implements repository.CompetitorRepository
var _ repository.CompetitorRepository = (*DB)(nil)

const competitorColumns = `id, username, position, name, youtube, instagram,
	verified, created_at, updated_at`

// ListByUsername returns the user's competitors in list order.
// A user with no entries gets an empty, non-nil slice.
func (db *DB) ListByUsername(ctx context.Context, username string) ([]model.CompetitorEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+competitorColumns+` FROM competitors
		 WHERE username = ?
		 ORDER BY position, created_at`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing competitors for %s: %w", username, err)
	}
	defer rows.Close()

	entries := make([]model.CompetitorEntry, 0)
	for rows.Next() {
		e, err := scanCompetitor(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning competitor row: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating competitors: %w", err)
	}
	return entries, nil
}

// ReplaceAll deletes the user's list and inserts entries in their place.
//
// TRANSACTION:
// Both steps run in one transaction, so a failure part-way rolls back to the
// previous list instead of leaving the user with nothing. With the pool capped
// at one connection, two concurrent ReplaceAll calls cannot interleave; the
// list afterwards is exactly whichever call committed last.
//
// Entries keep their IDs when set; empty IDs are generated. Positions are
// rewritten from slice order. The returned slice carries the stored values.
func (db *DB) ReplaceAll(ctx context.Context, username string, entries []model.CompetitorEntry) ([]model.CompetitorEntry, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning replace for %s: %w", username, err)
	}
	// Rollback after Commit is a no-op returning sql.ErrTxDone.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM competitors WHERE username = ?`, username); err != nil {
		return nil, fmt.Errorf("sqlite: clearing competitors for %s: %w", username, err)
	}

	now := time.Now().UTC()
	stored := make([]model.CompetitorEntry, 0, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			e.ID = xid.New().String()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.Username = username
		e.Position = i
		e.UpdatedAt = now

		// an ID still taken after the delete belongs to another user or
		// repeats within entries
		result, err := tx.ExecContext(ctx,
			`INSERT INTO competitors (`+competitorColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			e.ID, e.Username, e.Position, e.Name, e.YouTube, e.Instagram,
			e.Verified, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: inserting competitor %s: %w", e.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return nil, apperror.NotFound("competitor", e.ID)
		}
		stored = append(stored, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing replace for %s: %w", username, err)
	}
	return stored, nil
}

// Upsert inserts the entry or updates the row with the same ID.
//
// Only that one row is touched. The WHERE clause on the update keeps a caller
// from overwriting another user's row by reusing its ID; in that case nothing
// changes and NotFound is returned.
func (db *DB) Upsert(ctx context.Context, entry *model.CompetitorEntry) error {
	now := time.Now().UTC()
	if entry.ID == "" {
		entry.ID = xid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO competitors (`+competitorColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			position   = excluded.position,
			name       = excluded.name,
			youtube    = excluded.youtube,
			instagram  = excluded.instagram,
			verified   = excluded.verified,
			updated_at = excluded.updated_at
		 WHERE competitors.username = excluded.username`,
		entry.ID, entry.Username, entry.Position, entry.Name, entry.YouTube,
		entry.Instagram, entry.Verified, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting competitor %s: %w", entry.ID, err)
	}
	return requireOneRow(result, "competitor", entry.ID)
}

// GetByID returns one of the user's entries.
func (db *DB) GetByID(ctx context.Context, username, id string) (*model.CompetitorEntry, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+competitorColumns+` FROM competitors WHERE id = ? AND username = ?`,
		id, username,
	)
	e, err := scanCompetitor(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("competitor", id)
		}
		return nil, fmt.Errorf("sqlite: getting competitor %s: %w", id, err)
	}
	return e, nil
}

// Delete removes one entry. The remaining positions keep their order.
func (db *DB) Delete(ctx context.Context, username, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM competitors WHERE id = ? AND username = ?`, id, username)
	if err != nil {
		return fmt.Errorf("sqlite: deleting competitor %s: %w", id, err)
	}
	return requireOneRow(result, "competitor", id)
}

func scanCompetitor(s scanner) (*model.CompetitorEntry, error) {
	var e model.CompetitorEntry
	if err := s.Scan(
		&e.ID,
		&e.Username,
		&e.Position,
		&e.Name,
		&e.YouTube,
		&e.Instagram,
		&e.Verified,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
