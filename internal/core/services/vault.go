package services

import (
	"context"
	"fmt"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
	"github.com/wkyt-app/wkyt/internal/core/ports/driving"
)

// Ensure VaultService implements the interface.
var _ driving.VaultService = (*VaultService)(nil)

// MaxQueryLimit caps how many records one query returns.
const MaxQueryLimit = 1000

// VaultService composes authentication, ingestion and storage behind the
// driving port used by the CLI and MCP shells.
type VaultService struct {
	oauth   *OAuthClient
	engine  *IngestionEngine
	records driven.RecordStore
	cursors driven.CursorStore
	secrets driven.SecretStore
}

// NewVaultService creates a new vault service.
func NewVaultService(
	oauth *OAuthClient,
	engine *IngestionEngine,
	records driven.RecordStore,
	cursors driven.CursorStore,
	secrets driven.SecretStore,
) *VaultService {
	return &VaultService{
		oauth:   oauth,
		engine:  engine,
		records: records,
		cursors: cursors,
		secrets: secrets,
	}
}

// InitiateAuth starts an authorization flow with the provider's default scopes.
func (s *VaultService) InitiateAuth(ctx context.Context, provider domain.Provider) (*driving.AuthRequest, error) {
	authURL, state, expiresAt, err := s.oauth.InitiateAuth(ctx, provider, nil)
	if err != nil {
		return nil, err
	}
	return &driving.AuthRequest{
		Provider:         provider,
		AuthorizationURL: authURL,
		State:            state,
		ExpiresAt:        expiresAt,
	}, nil
}

// CompleteAuth finishes an authorization flow.
func (s *VaultService) CompleteAuth(
	ctx context.Context,
	provider domain.Provider,
	code, state string,
) (*driving.AccountInfo, error) {
	cred, err := s.oauth.CompleteAuth(ctx, provider, code, state)
	if err != nil {
		return nil, err
	}
	defer cred.Zero()

	return &driving.AccountInfo{
		Provider:  cred.Provider,
		AccountID: cred.AccountID,
		ExpiresAt: cred.ExpiresAt,
		Scopes:    cred.Scopes,
	}, nil
}

// Sync ingests records for one account.
func (s *VaultService) Sync(ctx context.Context, provider domain.Provider, accountID string) (*domain.SyncReport, error) {
	if !provider.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, provider)
	}
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", domain.ErrInvalidInput)
	}
	return s.engine.Sync(ctx, provider, accountID)
}

// SyncAll ingests records for every stored account.
func (s *VaultService) SyncAll(ctx context.Context) ([]domain.SyncReport, error) {
	return s.engine.SyncAll(ctx)
}

// QueryRecords returns decrypted records matching filter.
func (s *VaultService) QueryRecords(ctx context.Context, filter domain.RecordFilter) ([]driving.RecordView, error) {
	if filter.Provider != "" && !filter.Provider.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, filter.Provider)
	}
	if filter.Limit < 0 || filter.Limit > MaxQueryLimit {
		return nil, fmt.Errorf("%w: limit must be between 0 and %d", domain.ErrInvalidInput, MaxQueryLimit)
	}
	if filter.Limit == 0 {
		filter.Limit = MaxQueryLimit
	}

	results, err := s.records.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	views := make([]driving.RecordView, 0, len(results))
	for _, r := range results {
		views = append(views, driving.RecordView{
			Provider:    r.Record.Provider,
			SourceID:    r.Record.SourceID,
			Kind:        r.Record.Kind,
			Payload:     r.Record.Payload,
			ContentHash: r.Record.ContentHash,
			IngestedAt:  r.Record.IngestedAt,
			UpdatedAt:   r.Record.UpdatedAt,
			Err:         r.Err,
		})
	}
	return views, nil
}

// Revoke drops the account's credential and sync cursor. Ingested records
// stay in the vault.
func (s *VaultService) Revoke(ctx context.Context, provider domain.Provider, accountID string) error {
	if err := s.oauth.Revoke(ctx, provider, accountID); err != nil {
		return err
	}
	if err := s.cursors.Delete(ctx, provider, accountID); err != nil {
		return fmt.Errorf("delete cursor: %w", err)
	}
	return nil
}

// Accounts lists accounts with stored credentials.
func (s *VaultService) Accounts(ctx context.Context) ([]domain.AccountKey, error) {
	return s.secrets.List(ctx)
}

// DeleteRecord removes one record.
func (s *VaultService) DeleteRecord(ctx context.Context, provider domain.Provider, sourceID string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, provider)
	}
	if sourceID == "" {
		return fmt.Errorf("%w: source id is required", domain.ErrInvalidInput)
	}
	return s.records.Delete(ctx, provider, sourceID)
}
