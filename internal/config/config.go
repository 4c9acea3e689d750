// Package config resolves typed vault settings from a driven.ConfigStore.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// Config keys.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir         = "data_dir"
	keyNetworkTimeout  = "network.timeout"
	keyRefreshMargin   = "auth.refresh_margin"
	keySessionTTL      = "auth.session_ttl"
	keyKeyringBackends = "keyring.backends"
	keyPageSize        = "sync.page_size"

	keyClientID     = "client_id"
	keyClientSecret = "client_secret"
	keyRedirectURI  = "redirect_uri"
	keyAuthURL      = "auth_url"
	keyTokenURL     = "token_url"
	keyRevokeURL    = "revoke_url"
	keyUserInfoURL  = "userinfo_url"
	keyAPIBaseURL   = "api_base_url"
	keyScopes       = "scopes"
)

// Defaults.
const (
	DefaultNetworkTimeout = 30 * time.Second
	DefaultRefreshMargin  = 60 * time.Second
	DefaultSessionTTL     = 10 * time.Minute
	DefaultPageSize       = 100
	MaxPageSize           = 500
	DefaultRedirectURI    = "http://127.0.0.1:8085/callback"

	CredentialsDBName = "credentials.db"
	RecordsDBName     = "records.db"
)

// Provider holds the OAuth client registration and endpoints for one provider.
// Empty endpoint fields fall back to the connector's defaults.
type Provider struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	RevokeURL    string
	UserInfoURL  string
	APIBaseURL   string
	Scopes       []string
}

// Configured reports whether a client registration is present.
func (p Provider) Configured() bool {
	return p.ClientID != ""
}

// Config is the resolved vault configuration.
type Config struct {
	DataDir         string
	NetworkTimeout  time.Duration
	RefreshMargin   time.Duration
	SessionTTL      time.Duration
	KeyringBackends []string
	PageSize        int
	Providers       map[domain.Provider]Provider
}

// Load reads settings from store and applies defaults.
func Load(store driven.ConfigStore) (*Config, error) {
	cfg := &Config{
		DataDir:         store.GetString(keyDataDir),
		NetworkTimeout:  durationOr(store, keyNetworkTimeout, DefaultNetworkTimeout),
		RefreshMargin:   durationOr(store, keyRefreshMargin, DefaultRefreshMargin),
		SessionTTL:      durationOr(store, keySessionTTL, DefaultSessionTTL),
		KeyringBackends: store.GetStringSlice(keyKeyringBackends),
		PageSize:        store.GetInt(keyPageSize),
		Providers:       make(map[domain.Provider]Provider),
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".wkyt", "data")
	}

	switch {
	case cfg.PageSize == 0:
		cfg.PageSize = DefaultPageSize
	case cfg.PageSize < 0 || cfg.PageSize > MaxPageSize:
		return nil, fmt.Errorf("%w: %s must be between 1 and %d", domain.ErrInvalidInput, keyPageSize, MaxPageSize)
	}

	for _, p := range domain.Providers() {
		cfg.Providers[p] = loadProvider(store, p)
	}

	return cfg, nil
}

func loadProvider(store driven.ConfigStore, p domain.Provider) Provider {
	key := func(k string) string { return string(p) + "." + k }

	pc := Provider{
		ClientID:     store.GetString(key(keyClientID)),
		ClientSecret: store.GetString(key(keyClientSecret)),
		RedirectURI:  store.GetString(key(keyRedirectURI)),
		AuthURL:      store.GetString(key(keyAuthURL)),
		TokenURL:     store.GetString(key(keyTokenURL)),
		RevokeURL:    store.GetString(key(keyRevokeURL)),
		UserInfoURL:  store.GetString(key(keyUserInfoURL)),
		APIBaseURL:   store.GetString(key(keyAPIBaseURL)),
		Scopes:       store.GetStringSlice(key(keyScopes)),
	}
	if pc.RedirectURI == "" {
		pc.RedirectURI = DefaultRedirectURI
	}
	return pc
}

func durationOr(store driven.ConfigStore, key string, def time.Duration) time.Duration {
	if d := store.GetDuration(key); d > 0 {
		return d
	}
	return def
}

// Provider returns the settings for p or domain.ErrNotConfigured.
func (c *Config) Provider(p domain.Provider) (Provider, error) {
	pc, ok := c.Providers[p]
	if !ok || !pc.Configured() {
		return Provider{}, fmt.Errorf("%w: set %s.%s in config or %s", domain.ErrNotConfigured, p, keyClientID, envHint(p))
	}
	return pc, nil
}

func envHint(p domain.Provider) string {
	return "WKYT_" + strings.ToUpper(string(p)) + "_CLIENT_ID"
}

// CredentialsDBPath returns the credential database path.
func (c *Config) CredentialsDBPath() string {
	return filepath.Join(c.DataDir, CredentialsDBName)
}

// RecordsDBPath returns the record database path.
func (c *Config) RecordsDBPath() string {
	return filepath.Join(c.DataDir, RecordsDBName)
}
