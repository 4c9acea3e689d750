package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wkyt-app/wkyt/internal/adapters/driven/crypto"
	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Upsert stores or replaces a record. The first IngestedAt is kept on replace.
func (s *recordStore) Upsert(ctx context.Context, rec domain.Record) error {
	if !rec.Provider.IsValid() || rec.SourceID == "" {
		return fmt.Errorf("%w: record needs provider and source id", domain.ErrInvalidInput)
	}

	unlock := s.store.locks.Lock(lockKey(rec.Provider, rec.SourceID))
	defer unlock()

	blob, err := crypto.SealRecord(s.store.codec, rec.Provider, rec.SourceID, rec.Payload)
	if err != nil {
		return fmt.Errorf("encrypting record: %w", err)
	}

	now := s.store.now()
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if rec.ContentHash == "" {
		rec.ContentHash = domain.ContentHash(rec.Payload)
	}
	if rec.Kind == "" {
		rec.Kind = domain.RecordKindOther
	}

	err = s.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (provider, source_id, kind, content_hash, key_id, nonce, ciphertext, auth_tag, ingested_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(provider, source_id) DO UPDATE SET
				kind = excluded.kind,
				content_hash = excluded.content_hash,
				key_id = excluded.key_id,
				nonce = excluded.nonce,
				ciphertext = excluded.ciphertext,
				auth_tag = excluded.auth_tag,
				updated_at = excluded.updated_at
		`, string(rec.Provider), rec.SourceID, string(rec.Kind), rec.ContentHash,
			blob.KeyID, blob.Nonce, blob.Ciphertext, blob.AuthTag,
			rec.IngestedAt.UnixNano(), rec.UpdatedAt.UnixNano())
		return err
	})
	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}

// Header returns the clear metadata of a record.
func (s *recordStore) Header(ctx context.Context, provider domain.Provider, sourceID string) (*domain.RecordHeader, error) {
	row := s.store.reader.QueryRowContext(ctx, `
		SELECT provider, source_id, kind, content_hash, ingested_at, updated_at
		FROM records WHERE provider = ? AND source_id = ?
	`, string(provider), sourceID)

	h, err := scanHeader(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record header: %w", classify(err))
	}
	return h, nil
}

// Get returns the decrypted record.
func (s *recordStore) Get(ctx context.Context, provider domain.Provider, sourceID string) (*domain.Record, error) {
	row := s.store.reader.QueryRowContext(ctx, `
		SELECT provider, source_id, kind, content_hash, ingested_at, updated_at,
			key_id, nonce, ciphertext, auth_tag
		FROM records WHERE provider = ? AND source_id = ?
	`, string(provider), sourceID)

	rec, blob, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", classify(err))
	}

	payload, err := crypto.OpenRecord(s.store.codec, rec.Provider, rec.SourceID, blob)
	if err != nil {
		return nil, fmt.Errorf("decrypting record %s/%s: %w", provider, sourceID, err)
	}
	rec.Payload = payload
	return rec, nil
}

// Query returns records matching filter, newest first. Decrypt failures are
// reported per result.
func (s *recordStore) Query(ctx context.Context, filter domain.RecordFilter) ([]domain.RecordResult, error) {
	var where []string
	var args []any

	if filter.Provider != "" {
		where = append(where, "provider = ?")
		args = append(args, string(filter.Provider))
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		where = append(where, "updated_at >= ?")
		args = append(args, filter.Since.UnixNano())
	}

	query := `
		SELECT provider, source_id, kind, content_hash, ingested_at, updated_at,
			key_id, nonce, ciphertext, auth_tag
		FROM records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, provider, source_id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.store.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", classify(err))
	}
	defer rows.Close()

	var results []domain.RecordResult
	for rows.Next() {
		rec, blob, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", classify(err))
		}

		result := domain.RecordResult{Record: *rec}
		payload, err := crypto.OpenRecord(s.store.codec, rec.Provider, rec.SourceID, blob)
		if err != nil {
			result.Err = err
		} else {
			result.Record.Payload = payload
		}
		results = append(results, result)
	}
	return results, classify(rows.Err())
}

// Delete removes a record.
func (s *recordStore) Delete(ctx context.Context, provider domain.Provider, sourceID string) error {
	unlock := s.store.locks.Lock(lockKey(provider, sourceID))
	defer unlock()

	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM records WHERE provider = ? AND source_id = ?",
			string(provider), sourceID)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanHeader(row rowScanner) (*domain.RecordHeader, error) {
	var h domain.RecordHeader
	var provider, kind string
	var ingestedAt, updatedAt sql.NullInt64
	if err := row.Scan(&provider, &h.SourceID, &kind, &h.ContentHash, &ingestedAt, &updatedAt); err != nil {
		return nil, err
	}
	h.Provider = domain.Provider(provider)
	h.Kind = domain.RecordKind(kind)
	h.IngestedAt = fromNanos(ingestedAt)
	h.UpdatedAt = fromNanos(updatedAt)
	return &h, nil
}

func scanRecord(row rowScanner) (*domain.Record, domain.EncryptedBlob, error) {
	var rec domain.Record
	var blob domain.EncryptedBlob
	var provider, kind string
	var ingestedAt, updatedAt sql.NullInt64
	if err := row.Scan(&provider, &rec.SourceID, &kind, &rec.ContentHash, &ingestedAt, &updatedAt,
		&blob.KeyID, &blob.Nonce, &blob.Ciphertext, &blob.AuthTag); err != nil {
		return nil, blob, err
	}
	rec.Provider = domain.Provider(provider)
	rec.Kind = domain.RecordKind(kind)
	rec.IngestedAt = fromNanos(ingestedAt)
	rec.UpdatedAt = fromNanos(updatedAt)
	return &rec, blob, nil
}
