package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wkyt-app/wkyt/internal/adapters/driven/crypto"
	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// ==================== Secret Store ====================

// secretStore implements driven.SecretStore.
type secretStore struct {
	store *Store
}

var _ driven.SecretStore = (*secretStore)(nil)

// Put atomically stores or replaces the credential for its account.
func (s *secretStore) Put(ctx context.Context, cred domain.Credential) error {
	if !cred.Provider.IsValid() || cred.AccountID == "" {
		return fmt.Errorf("%w: credential needs provider and account id", domain.ErrInvalidInput)
	}

	unlock := s.store.locks.Lock(lockKey(cred.Provider, cred.AccountID))
	defer unlock()

	blob, err := crypto.SealCredential(s.store.codec, cred)
	if err != nil {
		return err
	}

	now := s.store.now()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}

	err = s.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credentials (provider, account_id, key_id, nonce, ciphertext, auth_tag, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(provider, account_id) DO UPDATE SET
				key_id = excluded.key_id,
				nonce = excluded.nonce,
				ciphertext = excluded.ciphertext,
				auth_tag = excluded.auth_tag,
				updated_at = excluded.updated_at
		`, string(cred.Provider), cred.AccountID, blob.KeyID, blob.Nonce, blob.Ciphertext, blob.AuthTag,
			cred.CreatedAt.UnixNano(), now.UnixNano())
		return err
	})
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Get retrieves and decrypts the credential for an account.
func (s *secretStore) Get(ctx context.Context, provider domain.Provider, accountID string) (*domain.Credential, error) {
	row := s.store.reader.QueryRowContext(ctx, `
		SELECT key_id, nonce, ciphertext, auth_tag, created_at, updated_at
		FROM credentials WHERE provider = ? AND account_id = ?
	`, string(provider), accountID)

	var blob domain.EncryptedBlob
	var createdAt, updatedAt sql.NullInt64
	if err := row.Scan(&blob.KeyID, &blob.Nonce, &blob.Ciphertext, &blob.AuthTag, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning credential: %w", classify(err))
	}

	cred := &domain.Credential{
		Provider:  provider,
		AccountID: accountID,
		CreatedAt: fromNanos(createdAt),
		UpdatedAt: fromNanos(updatedAt),
	}
	if err := crypto.OpenCredential(s.store.codec, blob, cred); err != nil {
		return nil, fmt.Errorf("decrypting credential %s/%s: %w", provider, accountID, err)
	}
	return cred, nil
}

// Delete removes the credential for an account.
func (s *secretStore) Delete(ctx context.Context, provider domain.Provider, accountID string) error {
	unlock := s.store.locks.Lock(lockKey(provider, accountID))
	defer unlock()

	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM credentials WHERE provider = ? AND account_id = ?",
			string(provider), accountID)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// List returns every stored account without decrypting.
func (s *secretStore) List(ctx context.Context) ([]domain.AccountKey, error) {
	rows, err := s.store.reader.QueryContext(ctx,
		"SELECT provider, account_id FROM credentials ORDER BY provider, account_id")
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", classify(err))
	}
	defer rows.Close()

	var keys []domain.AccountKey
	for rows.Next() {
		var provider string
		var key domain.AccountKey
		if err := rows.Scan(&provider, &key.AccountID); err != nil {
			return nil, fmt.Errorf("scanning account: %w", classify(err))
		}
		key.Provider = domain.Provider(provider)
		keys = append(keys, key)
	}
	return keys, classify(rows.Err())
}
