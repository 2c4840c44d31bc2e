package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/socialpulse/internal/apperror"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `username, password_hash, youtube_handle, instagram_handle,
	email, last_summary_at, created_at, updated_at`

// Create inserts a new account.
//
// ON CONFLICT DO NOTHING turns a duplicate username into zero affected rows,
// which we report as a Conflict without having to inspect driver error codes.
func (db *DB) Create(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash, youtube_handle, instagram_handle,
		                       email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(username) DO NOTHING`,
		account.Username,
		account.PasswordHash,
		account.YouTubeHandle,
		account.InstagramHandle,
		account.Email,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating account %s: %w", account.Username, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("username", "username already exists")
	}
	return nil
}

// GetByUsername returns apperror.ErrNotFound when no account matches.
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)

	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", username)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", username, err)
	}
	return account, nil
}

// UpdateHandles stores the owner's own YouTube and Instagram handles.
func (db *DB) UpdateHandles(ctx context.Context, username, youtube, instagram string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET youtube_handle = ?, instagram_handle = ?, updated_at = ?
		 WHERE username = ?`,
		youtube, instagram, time.Now().UTC(), username,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating handles for %s: %w", username, err)
	}
	return requireOneRow(result, "account", username)
}

// SetLastSummaryAt records when the user's last summary cycle ran.
func (db *DB) SetLastSummaryAt(ctx context.Context, username string, at time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET last_summary_at = ? WHERE username = ?`,
		at.UTC(), username,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting last summary for %s: %w", username, err)
	}
	return requireOneRow(result, "account", username)
}

// ListSummarized returns accounts that have completed at least one cycle,
// ordered by username.
func (db *DB) ListSummarized(ctx context.Context) ([]model.Account, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE last_summary_at IS NOT NULL
		 ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing summarized accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning account row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating accounts: %w", err)
	}
	return accounts, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*model.Account, error) {
	var (
		a    model.Account
		last sql.NullTime
	)
	if err := s.Scan(
		&a.Username,
		&a.PasswordHash,
		&a.YouTubeHandle,
		&a.InstagramHandle,
		&a.Email,
		&last,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time.UTC()
		a.LastSummaryAt = &t
	}
	return &a, nil
}

// requireOneRow maps "no rows affected" to apperror.NotFound.
func requireOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
