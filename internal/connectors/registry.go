package connectors

import (
	"fmt"
	"net/http"

	"github.com/wkyt-app/wkyt/internal/adapters/driven/oauth"
	"github.com/wkyt-app/wkyt/internal/config"
	"github.com/wkyt-app/wkyt/internal/connectors/github"
	"github.com/wkyt-app/wkyt/internal/connectors/google"
	"github.com/wkyt-app/wkyt/internal/connectors/google/gmail"
	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.AdapterFactory = (*Registry)(nil)

// Builder creates an adapter bound to tokens.
type Builder func(tokens driven.TokenSource) driven.ProviderAdapter

// Registry maps providers to adapter builders.
type Registry struct {
	builders map[domain.Provider]Builder
}

// NewRegistry registers the built-in adapters configured from cfg.
func NewRegistry(cfg *config.Config) *Registry {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: cfg.NetworkTimeout,
		MaxIdleConnsPerHost: 4,
	}
	base := timeoutTransport(transport, cfg.NetworkTimeout)

	r := &Registry{builders: make(map[domain.Provider]Builder)}

	gmailCfg := gmail.DefaultConfig()
	gmailCfg.PageSize = int64(cfg.PageSize)
	gmailCfg.Endpoint = cfg.Providers[domain.ProviderGoogle].APIBaseURL
	gmailCfg.Transport = base
	r.Register(domain.ProviderGoogle, func(tokens driven.TokenSource) driven.ProviderAdapter {
		return gmail.New(tokens, gmailCfg)
	})

	githubCfg := github.DefaultConfig()
	githubCfg.PageSize = cfg.PageSize
	githubCfg.BaseURL = cfg.Providers[domain.ProviderGitHub].APIBaseURL
	githubCfg.Transport = base
	r.Register(domain.ProviderGitHub, func(tokens driven.TokenSource) driven.ProviderAdapter {
		return github.New(tokens, githubCfg)
	})

	return r
}

// Register adds or replaces the builder for provider.
func (r *Registry) Register(provider domain.Provider, b Builder) {
	r.builders[provider] = b
}

// Supports reports whether an adapter is registered for provider.
func (r *Registry) Supports(provider domain.Provider) bool {
	_, ok := r.builders[provider]
	return ok
}

// Create returns an adapter for provider bound to tokens.
func (r *Registry) Create(provider domain.Provider, tokens driven.TokenSource) (driven.ProviderAdapter, error) {
	b, ok := r.builders[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAdapterUnavailable, provider)
	}
	return b(tokens), nil
}

// OAuthHandlers returns the OAuth handler of every supported provider.
func OAuthHandlers() []oauth.Handler {
	return []oauth.Handler{
		google.NewOAuthHandler(),
		github.NewOAuthHandler(),
	}
}
