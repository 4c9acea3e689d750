package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// ==================== Cursor Store ====================

// cursorStore implements driven.CursorStore.
type cursorStore struct {
	store *Store
}

var _ driven.CursorStore = (*cursorStore)(nil)

// Save stores or updates a sync cursor.
func (s *cursorStore) Save(ctx context.Context, cursor domain.SyncCursor) error {
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sync_cursors (provider, account_id, page_token, pass_started_at, last_synced_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(provider, account_id) DO UPDATE SET
				page_token = excluded.page_token,
				pass_started_at = excluded.pass_started_at,
				last_synced_at = excluded.last_synced_at,
				updated_at = excluded.updated_at
		`, string(cursor.Provider), cursor.AccountID, cursor.PageToken,
			toNanos(cursor.PassStartedAt), toNanos(cursor.LastSyncedAt), s.store.now().UnixNano())
		return err
	})
	if err != nil {
		return fmt.Errorf("saving sync cursor: %w", err)
	}
	return nil
}

// Get retrieves the sync cursor for an account.
func (s *cursorStore) Get(ctx context.Context, provider domain.Provider, accountID string) (*domain.SyncCursor, error) {
	row := s.store.reader.QueryRowContext(ctx, `
		SELECT page_token, pass_started_at, last_synced_at
		FROM sync_cursors WHERE provider = ? AND account_id = ?
	`, string(provider), accountID)

	cursor := domain.SyncCursor{Provider: provider, AccountID: accountID}
	var passStartedAt, lastSyncedAt sql.NullInt64
	if err := row.Scan(&cursor.PageToken, &passStartedAt, &lastSyncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync cursor: %w", classify(err))
	}

	cursor.PassStartedAt = fromNanos(passStartedAt)
	cursor.LastSyncedAt = fromNanos(lastSyncedAt)
	return &cursor, nil
}

// Delete removes the sync cursor for an account.
func (s *cursorStore) Delete(ctx context.Context, provider domain.Provider, accountID string) error {
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM sync_cursors WHERE provider = ? AND account_id = ?",
			string(provider), accountID)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting sync cursor: %w", err)
	}
	return nil
}
