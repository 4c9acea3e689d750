package driven

import (
	"context"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

// OAuthProtocol speaks the OAuth2 wire protocol to provider endpoints.
// Every network call is bounded by the configured network timeout.
type OAuthProtocol interface {
	// AuthCodeURL builds the authorization URL with a PKCE S256 challenge.
	AuthCodeURL(provider domain.Provider, state, challenge string, scopes []string) (string, error)

	// Exchange swaps an authorization code for tokens.
	// Non-2xx responses and timeouts return domain.ErrExchangeFailed.
	Exchange(ctx context.Context, provider domain.Provider, code, verifier string) (*TokenGrant, error)

	// Refresh obtains a new access token. A rejected refresh token returns
	// domain.ErrInvalidGrant, other failures domain.ErrExchangeFailed.
	// An empty RefreshToken in the result means the old one stays valid.
	Refresh(ctx context.Context, provider domain.Provider, refreshToken string) (*TokenGrant, error)

	// AccountID resolves the provider account that owns accessToken.
	AccountID(ctx context.Context, provider domain.Provider, accessToken string) (string, error)

	// Revoke invalidates a token at the provider when it supports revocation.
	Revoke(ctx context.Context, provider domain.Provider, token string) error

	// DefaultScopes returns the configured scopes for provider.
	DefaultScopes(provider domain.Provider) []string
}

// TokenSource yields access tokens for one provider account.
type TokenSource interface {
	// Token returns a valid access token, refreshing when close to expiry.
	Token(ctx context.Context) (string, error)

	// ForceRefresh refreshes regardless of expiry. Used after a 401.
	ForceRefresh(ctx context.Context) (string, error)
}

// ProviderAdapter reads records from one provider account.
type ProviderAdapter interface {
	// Provider returns the provider this adapter reads from.
	Provider() domain.Provider

	// Authenticate makes a cheap identity call proving the token works.
	Authenticate(ctx context.Context) error

	// ListRecords returns the page named by cursor.PageToken.
	// cursor.LastSyncedAt, when set, limits the listing to newer items.
	ListRecords(ctx context.Context, cursor domain.SyncCursor) (*domain.Page, error)

	// FetchRecord returns a single record by provider ID.
	FetchRecord(ctx context.Context, sourceID string) (*domain.RawRecord, error)
}

// AdapterFactory creates provider adapters bound to a token source.
type AdapterFactory interface {
	// Create returns an adapter for provider, or domain.ErrAdapterUnavailable.
	Create(provider domain.Provider, tokens TokenSource) (ProviderAdapter, error)

	// Supports reports whether an adapter is registered for provider.
	Supports(provider domain.Provider) bool
}
