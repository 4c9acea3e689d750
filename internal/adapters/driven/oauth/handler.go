// Package oauth implements driven.OAuthProtocol on golang.org/x/oauth2.
//
// Provider quirks (extra authorization parameters, default endpoints and
// how the account identity is read) live in per-provider Handlers supplied
// by the connectors.
package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

// Endpoints are a provider's OAuth endpoints and default scopes.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	RevokeURL   string
	UserInfoURL string
	Scopes      []string
}

// Handler provides one provider's OAuth specifics.
type Handler interface {
	// Provider returns the provider this handler serves.
	Provider() domain.Provider

	// DefaultEndpoints returns the endpoints used when config leaves them empty.
	// An empty RevokeURL means the provider has no revocation endpoint.
	DefaultEndpoints() Endpoints

	// AuthCodeOptions returns extra authorization URL parameters,
	// e.g. Google's access_type=offline.
	AuthCodeOptions() []oauth2.AuthCodeOption

	// AccountID fetches the account identifier (email/login) from userInfoURL.
	AccountID(ctx context.Context, client *http.Client, userInfoURL, accessToken string) (string, error)
}
