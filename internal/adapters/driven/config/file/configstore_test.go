package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, env map[string]string) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	store.lookup = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_LoadsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := []byte(`
data_dir = "/tmp/vault"

[network]
timeout = "15s"

[google]
client_id = "abc.apps.googleusercontent.com"
scopes = ["openid", "email"]

[sync]
page_size = 50
`)
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), content, 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	store.lookup = func(string) (string, bool) { return "", false }

	assert.Equal(t, "/tmp/vault", store.GetString("data_dir"))
	assert.Equal(t, 15*time.Second, store.GetDuration("network.timeout"))
	assert.Equal(t, "abc.apps.googleusercontent.com", store.GetString("google.client_id"))
	assert.Equal(t, []string{"openid", "email"}, store.GetStringSlice("google.scopes"))
	assert.Equal(t, 50, store.GetInt("sync.page_size"))
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "WKYT_GOOGLE_CLIENT_SECRET", EnvKey("google.client_secret"))
	assert.Equal(t, "WKYT_NETWORK_TIMEOUT", EnvKey("network.timeout"))
	assert.Equal(t, "WKYT_DATA_DIR", EnvKey("data_dir"))
}

func TestConfigStore_EnvOverrides(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"WKYT_GOOGLE_CLIENT_SECRET": "from-env",
		"WKYT_SYNC_PAGE_SIZE":       "25",
		"WKYT_NETWORK_TIMEOUT":      "5s",
		"WKYT_GITHUB_SCOPES":        "repo, read:user",
		"WKYT_DEBUG":                "true",
	})
	require.NoError(t, store.Set("google.client_secret", "from-file"))

	assert.Equal(t, "from-env", store.GetString("google.client_secret"))
	assert.Equal(t, 25, store.GetInt("sync.page_size"))
	assert.Equal(t, 5*time.Second, store.GetDuration("network.timeout"))
	assert.Equal(t, []string{"repo", "read:user"}, store.GetStringSlice("github.scopes"))
	assert.True(t, store.GetBool("debug"))

	// Overrides are never written back
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env")
}

func TestConfigStore_TypeMismatch(t *testing.T) {
	store := newTestStore(t, nil)
	require.NoError(t, store.Set("int_key", 42))
	require.NoError(t, store.Set("string_key", "true"))

	assert.Equal(t, "", store.GetString("int_key"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.Equal(t, time.Duration(0), store.GetDuration("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
	assert.True(t, store.GetBool("string_key"))
	assert.Equal(t, 42*time.Second, store.GetDuration("int_key"))
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("github.client_id", "Iv1.abc"))
	require.NoError(t, store1.Set("sync.page_size", 42))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "Iv1.abc", store2.GetString("github.client_id"))
	assert.Equal(t, 42, store2.GetInt("sync.page_size"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestStore(t, nil)
	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte{}, 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	_, ok := store.Get("any_key")
	assert.False(t, ok)
}

func TestFlattenUnflatten(t *testing.T) {
	nested := map[string]any{
		"network":  map[string]any{"timeout": "30s"},
		"data_dir": "/x",
	}

	flat := flattenMap(nested, "")
	assert.Equal(t, map[string]any{"network.timeout": "30s", "data_dir": "/x"}, flat)
	assert.Equal(t, nested, unflattenMap(flat))
}
