package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

type vaultFixture struct {
	vault    *VaultService
	ingest   *ingestFixture
	protocol *oauthMockProtocol
	oauth    *OAuthClient
}

func newVaultFixture(t *testing.T, pages ...domain.Page) *vaultFixture {
	t.Helper()
	ing := newIngestFixture(t, pages...)
	protocol := &oauthMockProtocol{
		accountID: "alice@example.com",
		exchangeGrant: &driven.TokenGrant{
			AccessToken:  domain.NewSecret("T1"),
			RefreshToken: domain.NewSecret("R1"),
			TokenType:    "Bearer",
			ExpiresAt:    ing.now.Add(time.Hour),
		},
	}
	oauth := NewOAuthClient(protocol, ing.secrets, OAuthOptions{})
	oauth.now = func() time.Time { return ing.now }
	ing.engine.tokens = oauth

	return &vaultFixture{
		vault:    NewVaultService(oauth, ing.engine, ing.records, ing.cursors, ing.secrets),
		ingest:   ing,
		protocol: protocol,
		oauth:    oauth,
	}
}

func TestVaultService_AuthSyncQueryRevoke(t *testing.T) {
	f := newVaultFixture(t, domain.Page{Records: []domain.RawRecord{rawMessage("m1", "hello"), rawMessage("m2", "world")}})
	ctx := context.Background()

	req, err := f.vault.InitiateAuth(ctx, domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGoogle, req.Provider)
	assert.NotEmpty(t, req.AuthorizationURL)

	info, err := f.vault.CompleteAuth(ctx, domain.ProviderGoogle, "abc", req.State)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", info.AccountID)

	accounts, err := f.vault.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.AccountKey{{Provider: domain.ProviderGoogle, AccountID: "alice@example.com"}}, accounts)

	report, err := f.vault.Sync(ctx, domain.ProviderGoogle, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, report.RecordsAdded)

	views, err := f.vault.QueryRecords(ctx, domain.RecordFilter{Provider: domain.ProviderGoogle})
	require.NoError(t, err)
	require.Len(t, views, 2)
	payloads := []string{string(views[0].Payload), string(views[1].Payload)}
	assert.ElementsMatch(t, []string{"hello", "world"}, payloads)

	require.NoError(t, f.vault.Revoke(ctx, domain.ProviderGoogle, "alice@example.com"))
	accounts, err = f.vault.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
	_, err = f.ingest.cursors.Get(ctx, domain.ProviderGoogle, "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Records survive revocation.
	views, err = f.vault.QueryRecords(ctx, domain.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestVaultService_QueryRecords_Validation(t *testing.T) {
	f := newVaultFixture(t, domain.Page{})
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  domain.RecordFilter
		wantErr error
	}{
		{name: "negative limit", filter: domain.RecordFilter{Limit: -1}, wantErr: domain.ErrInvalidInput},
		{name: "limit too large", filter: domain.RecordFilter{Limit: MaxQueryLimit + 1}, wantErr: domain.ErrInvalidInput},
		{name: "unknown provider", filter: domain.RecordFilter{Provider: "dropbox"}, wantErr: domain.ErrUnsupportedProvider},
		{name: "empty filter", filter: domain.RecordFilter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.vault.QueryRecords(ctx, tt.filter)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVaultService_DeleteRecord(t *testing.T) {
	f := newVaultFixture(t, domain.Page{Records: []domain.RawRecord{rawMessage("m1", "x")}})
	ctx := context.Background()

	_, err := f.ingest.engine.Sync(ctx, domain.ProviderGoogle, "alice")
	require.NoError(t, err)

	require.NoError(t, f.vault.DeleteRecord(ctx, domain.ProviderGoogle, "m1"))
	assert.Equal(t, 0, f.ingest.records.Len())

	assert.ErrorIs(t, f.vault.DeleteRecord(ctx, domain.ProviderGoogle, ""), domain.ErrInvalidInput)
	assert.ErrorIs(t, f.vault.DeleteRecord(ctx, "dropbox", "m1"), domain.ErrUnsupportedProvider)
}

func TestVaultService_Sync_Validation(t *testing.T) {
	f := newVaultFixture(t, domain.Page{})
	ctx := context.Background()

	_, err := f.vault.Sync(ctx, "dropbox", "a")
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
	_, err = f.vault.Sync(ctx, domain.ProviderGoogle, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
