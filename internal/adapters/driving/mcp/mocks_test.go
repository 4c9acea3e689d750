package mcp

import (
	"context"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driving"
)

// mockVaultService is a mock implementation of driving.VaultService.
type mockVaultService struct {
	authReq     *driving.AuthRequest
	account     *driving.AccountInfo
	report      *domain.SyncReport
	reports     []domain.SyncReport
	views       []driving.RecordView
	accounts    []domain.AccountKey
	err         error
	lastFilter  domain.RecordFilter
	lastCode    string
	lastState   string
	syncAllCall bool
}

func (m *mockVaultService) InitiateAuth(_ context.Context, _ domain.Provider) (*driving.AuthRequest, error) {
	return m.authReq, m.err
}

func (m *mockVaultService) CompleteAuth(_ context.Context, _ domain.Provider, code, state string) (*driving.AccountInfo, error) {
	m.lastCode, m.lastState = code, state
	return m.account, m.err
}

func (m *mockVaultService) Sync(_ context.Context, _ domain.Provider, _ string) (*domain.SyncReport, error) {
	return m.report, m.err
}

func (m *mockVaultService) SyncAll(_ context.Context) ([]domain.SyncReport, error) {
	m.syncAllCall = true
	return m.reports, m.err
}

func (m *mockVaultService) QueryRecords(_ context.Context, filter domain.RecordFilter) ([]driving.RecordView, error) {
	m.lastFilter = filter
	return m.views, m.err
}

func (m *mockVaultService) Revoke(_ context.Context, _ domain.Provider, _ string) error {
	return m.err
}

func (m *mockVaultService) Accounts(_ context.Context) ([]domain.AccountKey, error) {
	return m.accounts, m.err
}

func (m *mockVaultService) DeleteRecord(_ context.Context, _ domain.Provider, _ string) error {
	return m.err
}
