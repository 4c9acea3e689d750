package driving

import (
	"context"
	"time"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

// VaultService is the single entry point shells use to drive the vault.
type VaultService interface {
	// InitiateAuth starts an authorization-code flow for provider.
	InitiateAuth(ctx context.Context, provider domain.Provider) (*AuthRequest, error)

	// CompleteAuth exchanges the code returned to the redirect URI.
	// An unknown or expired state returns domain.ErrStateMismatch.
	CompleteAuth(ctx context.Context, provider domain.Provider, code, state string) (*AccountInfo, error)

	// Sync ingests new and changed records for one account.
	Sync(ctx context.Context, provider domain.Provider, accountID string) (*domain.SyncReport, error)

	// SyncAll syncs every stored account. Reports are returned for the
	// accounts that finished; the error joins the failures.
	SyncAll(ctx context.Context) ([]domain.SyncReport, error)

	// QueryRecords returns decrypted records matching filter.
	QueryRecords(ctx context.Context, filter domain.RecordFilter) ([]RecordView, error)

	// Revoke forgets an account's credential and sync cursor.
	Revoke(ctx context.Context, provider domain.Provider, accountID string) error

	// Accounts lists the accounts with stored credentials.
	Accounts(ctx context.Context) ([]domain.AccountKey, error)

	// DeleteRecord removes one stored record.
	DeleteRecord(ctx context.Context, provider domain.Provider, sourceID string) error
}

// AuthRequest is a pending authorization the user must approve.
type AuthRequest struct {
	Provider         domain.Provider
	AuthorizationURL string
	State            string
	ExpiresAt        time.Time
}

// AccountInfo describes an authenticated account. It never carries tokens.
type AccountInfo struct {
	Provider  domain.Provider
	AccountID string
	ExpiresAt time.Time
	Scopes    []string
}

// RecordView is a decrypted record as presented to shells.
// Err is set when the stored payload could not be decrypted.
type RecordView struct {
	Provider    domain.Provider
	SourceID    string
	Kind        domain.RecordKind
	Payload     []byte
	ContentHash string
	IngestedAt  time.Time
	UpdatedAt   time.Time
	Err         error
}
