package memory

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkyt-app/wkyt/internal/adapters/driven/crypto"
	"github.com/wkyt-app/wkyt/internal/core/domain"
)

func testCodec(t *testing.T) *crypto.Codec {
	t.Helper()
	key, err := crypto.NewVaultKey(bytes.Repeat([]byte{3}, crypto.RootKeySize))
	require.NoError(t, err)
	t.Cleanup(func() { _ = key.Close() })
	return crypto.NewCodec(key)
}

func TestSecretStore_Lifecycle(t *testing.T) {
	store := NewSecretStore(testCodec(t))
	ctx := context.Background()

	cred := domain.Credential{
		Provider:    domain.ProviderGoogle,
		AccountID:   "alice@example.com",
		AccessToken: domain.NewSecret("T1"),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Put(ctx, cred))

	got, err := store.Get(ctx, domain.ProviderGoogle, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "T1", got.AccessToken.Reveal())
	assert.False(t, got.HasRefreshToken())

	// The store keeps only sealed bytes.
	sealed := store.creds[cred.Key()].blob
	assert.NotContains(t, string(sealed.Ciphertext), "T1")

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.AccountKey{cred.Key()}, keys)

	require.NoError(t, store.Delete(ctx, domain.ProviderGoogle, "alice@example.com"))
	require.NoError(t, store.Delete(ctx, domain.ProviderGoogle, "alice@example.com"))
	_, err = store.Get(ctx, domain.ProviderGoogle, "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_UpsertKeepsIngestedAt(t *testing.T) {
	store := NewRecordStore(testCodec(t))
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := domain.Record{
		RecordHeader: domain.RecordHeader{
			Provider: domain.ProviderGoogle, SourceID: "m1", Kind: domain.RecordKindMessage,
			IngestedAt: t0, UpdatedAt: t0,
		},
		Payload: []byte("v1"),
	}
	require.NoError(t, store.Upsert(ctx, rec))

	rec.Payload = []byte("v2")
	rec.ContentHash = ""
	rec.IngestedAt = t0.Add(time.Hour)
	rec.UpdatedAt = t0.Add(time.Hour)
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.Get(ctx, domain.ProviderGoogle, "m1")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got.Payload))
	assert.Equal(t, domain.ContentHash([]byte("v2")), got.ContentHash)
	assert.True(t, t0.Equal(got.IngestedAt))
	assert.True(t, t0.Add(time.Hour).Equal(got.UpdatedAt))
	assert.Equal(t, 2, store.Writes())
	assert.Equal(t, 1, store.Len())
}

func TestRecordStore_Query(t *testing.T) {
	store := NewRecordStore(testCodec(t))
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		at := t0.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Upsert(ctx, domain.Record{
			RecordHeader: domain.RecordHeader{Provider: domain.ProviderGoogle, SourceID: id, IngestedAt: at, UpdatedAt: at},
			Payload:      []byte(id),
		}))
	}

	results, err := store.Query(ctx, domain.RecordFilter{Since: t0.Add(time.Hour), Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].Record.SourceID)
	assert.Equal(t, "b", string(results[1].Record.Payload))
	assert.Equal(t, domain.RecordKindOther, results[0].Record.Kind)

	// Tamper with one sealed payload.
	key := recordKey{provider: domain.ProviderGoogle, sourceID: "c"}
	entry := store.records[key]
	entry.blob.AuthTag = make([]byte, 16)
	store.records[key] = entry

	results, err = store.Query(ctx, domain.RecordFilter{Provider: domain.ProviderGoogle})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.ErrorIs(t, results[0].Err, domain.ErrIntegrityFailure)
	assert.NoError(t, results[1].Err)
}

func TestCursorStore_Lifecycle(t *testing.T) {
	store := NewCursorStore()
	ctx := context.Background()

	_, err := store.Get(ctx, domain.ProviderGitHub, "octocat")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	cursor := domain.SyncCursor{Provider: domain.ProviderGitHub, AccountID: "octocat", PageToken: "3"}
	require.NoError(t, store.Save(ctx, cursor))

	got, err := store.Get(ctx, domain.ProviderGitHub, "octocat")
	require.NoError(t, err)
	assert.Equal(t, "3", got.PageToken)

	require.NoError(t, store.Delete(ctx, domain.ProviderGitHub, "octocat"))
	_, err = store.Get(ctx, domain.ProviderGitHub, "octocat")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
