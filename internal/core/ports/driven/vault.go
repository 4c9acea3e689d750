package driven

import (
	"context"
	"time"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

// Codec seals and opens blobs with authenticated encryption.
type Codec interface {
	// Encrypt seals plaintext under the subkey named by keyID.
	// associatedData is authenticated but not stored in the blob.
	Encrypt(plaintext []byte, keyID string, associatedData []byte) (domain.EncryptedBlob, error)

	// Decrypt verifies and opens a blob. Any tampering, wrong associated data
	// or unknown key ID returns domain.ErrIntegrityFailure.
	Decrypt(blob domain.EncryptedBlob, associatedData []byte) ([]byte, error)
}

// KeySource loads the vault root key from secure storage.
type KeySource interface {
	// LoadKey returns the root key, creating it on first use.
	// Failures return domain.ErrKeyUnavailable.
	LoadKey(ctx context.Context) ([]byte, error)
}

// SecretStore persists credentials encrypted at rest.
type SecretStore interface {
	// Put atomically stores or replaces the credential for its account.
	Put(ctx context.Context, cred domain.Credential) error

	// Get returns the credential or domain.ErrNotFound.
	Get(ctx context.Context, provider domain.Provider, accountID string) (*domain.Credential, error)

	// Delete removes the credential. Deleting a missing credential is not an error.
	Delete(ctx context.Context, provider domain.Provider, accountID string) error

	// List returns the stored accounts without decrypting anything.
	List(ctx context.Context) ([]domain.AccountKey, error)
}

// RecordStore persists ingested records. Payloads are encrypted at rest;
// identity, kind, hash and timestamps are stored in clear for queries.
type RecordStore interface {
	// Upsert stores or replaces a record by (Provider, SourceID).
	Upsert(ctx context.Context, rec domain.Record) error

	// Header returns the record metadata without decrypting, or domain.ErrNotFound.
	Header(ctx context.Context, provider domain.Provider, sourceID string) (*domain.RecordHeader, error)

	// Get returns the decrypted record or domain.ErrNotFound.
	Get(ctx context.Context, provider domain.Provider, sourceID string) (*domain.Record, error)

	// Query returns matching records ordered by UpdatedAt descending.
	// A record that fails to decrypt is returned with Err set.
	Query(ctx context.Context, filter domain.RecordFilter) ([]domain.RecordResult, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, provider domain.Provider, sourceID string) error
}

// CursorStore persists sync cursors per account.
type CursorStore interface {
	// Get returns the cursor or domain.ErrNotFound.
	Get(ctx context.Context, provider domain.Provider, accountID string) (*domain.SyncCursor, error)

	// Save stores or replaces a cursor.
	Save(ctx context.Context, cursor domain.SyncCursor) error

	// Delete removes a cursor. Deleting a missing cursor is not an error.
	Delete(ctx context.Context, provider domain.Provider, accountID string) error
}

// TokenGrant is a token endpoint response.
type TokenGrant struct {
	AccessToken  domain.Secret
	RefreshToken domain.Secret
	TokenType    string
	ExpiresAt    time.Time
	Scopes       []string
}
