package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync [provider account]", syncCmd.Use)
}

func TestSyncCmd_All(t *testing.T) {
	m := &mockVaultService{reports: []domain.SyncReport{{
		Provider:       domain.ProviderGoogle,
		AccountID:      "alice@example.com",
		RecordsAdded:   4,
		RecordsUpdated: 1,
		Pages:          2,
		CompletedAt:    time.Now(),
	}}}
	defer setupVault(m)()

	out, err := execute(t, nil, "sync")

	require.NoError(t, err)
	assert.True(t, m.syncedAll)
	assert.Contains(t, out, "Synchronising all accounts...")
	assert.Contains(t, out, "google/alice@example.com: 4 added, 1 updated, 0 unchanged over 2 pages")
}

func TestSyncCmd_OneAccount(t *testing.T) {
	m := &mockVaultService{report: &domain.SyncReport{
		Provider: domain.ProviderGitHub, AccountID: "octocat", CompletedAt: time.Now(),
	}}
	defer setupVault(m)()

	out, err := execute(t, nil, "sync", "github", "octocat")

	require.NoError(t, err)
	assert.Equal(t, domain.AccountKey{Provider: domain.ProviderGitHub, AccountID: "octocat"}, m.syncedTarget)
	assert.Contains(t, out, "Synchronising github/octocat...")
}

func TestSyncCmd_PartialReportOnFailure(t *testing.T) {
	m := &mockVaultService{
		report: &domain.SyncReport{Provider: domain.ProviderGitHub, AccountID: "octocat", RecordsAdded: 2, Pages: 1},
		err:    errors.Join(domain.ErrPageFetchFailed, errors.New("boom")),
	}
	defer setupVault(m)()

	out, err := execute(t, nil, "sync", "github", "octocat")

	assert.ErrorIs(t, err, domain.ErrPageFetchFailed)
	assert.Contains(t, out, "2 added")
	assert.Contains(t, out, "incomplete")
}

func TestSyncCmd_BadArgs(t *testing.T) {
	defer setupVault(&mockVaultService{})()

	_, err := execute(t, nil, "sync", "github")
	assert.Error(t, err)
}
