package cli

import (
	"context"
	"time"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driving"
)

// mockVaultService implements driving.VaultService for testing.
type mockVaultService struct {
	views    []driving.RecordView
	accounts []domain.AccountKey
	report   *domain.SyncReport
	reports  []domain.SyncReport
	err      error

	completeErr error

	lastFilter   domain.RecordFilter
	lastCode     string
	lastState    string
	revoked      domain.AccountKey
	deleted      string
	syncedAll    bool
	syncedTarget domain.AccountKey
}

func (m *mockVaultService) InitiateAuth(_ context.Context, p domain.Provider) (*driving.AuthRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driving.AuthRequest{
		Provider:         p,
		AuthorizationURL: "https://auth.example.com/authorize?state=pending-state",
		State:            "pending-state",
		ExpiresAt:        time.Now().Add(time.Minute),
	}, nil
}

func (m *mockVaultService) CompleteAuth(_ context.Context, p domain.Provider, code, state string) (*driving.AccountInfo, error) {
	m.lastCode, m.lastState = code, state
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	return &driving.AccountInfo{Provider: p, AccountID: "alice@example.com", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockVaultService) Sync(_ context.Context, p domain.Provider, accountID string) (*domain.SyncReport, error) {
	m.syncedTarget = domain.AccountKey{Provider: p, AccountID: accountID}
	return m.report, m.err
}

func (m *mockVaultService) SyncAll(_ context.Context) ([]domain.SyncReport, error) {
	m.syncedAll = true
	return m.reports, m.err
}

func (m *mockVaultService) QueryRecords(_ context.Context, filter domain.RecordFilter) ([]driving.RecordView, error) {
	m.lastFilter = filter
	return m.views, m.err
}

func (m *mockVaultService) Revoke(_ context.Context, p domain.Provider, accountID string) error {
	m.revoked = domain.AccountKey{Provider: p, AccountID: accountID}
	return m.err
}

func (m *mockVaultService) Accounts(_ context.Context) ([]domain.AccountKey, error) {
	return m.accounts, m.err
}

func (m *mockVaultService) DeleteRecord(_ context.Context, _ domain.Provider, sourceID string) error {
	m.deleted = sourceID
	return m.err
}

// setupVault installs m and returns a cleanup restoring the previous state.
func setupVault(m *mockVaultService) func() {
	old := vaultService
	vaultService = m
	return func() {
		vaultService = old
	}
}
