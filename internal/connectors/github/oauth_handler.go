package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/wkyt-app/wkyt/internal/adapters/driven/oauth"
	"github.com/wkyt-app/wkyt/internal/core/domain"
)

// Ensure OAuthHandler implements the interface.
var _ oauth.Handler = (*OAuthHandler)(nil)

// GitHub OAuth endpoints. GitHub OAuth apps have no revocation endpoint
// reachable with only the user's token.
const (
	defaultAuthURL = "https://github.com/login/oauth/authorize"
	//nolint:gosec // G101: Not credentials, OAuth endpoint URL
	defaultTokenURL = "https://github.com/login/oauth/access_token"
	userInfoURL     = "https://api.github.com/user"
)

// defaultScopes read repositories and identify the account.
var defaultScopes = []string{"repo", "read:user"}

var errNoLogin = errors.New("github: user info has no login")

// OAuthHandler implements OAuth operations for GitHub.
type OAuthHandler struct{}

// NewOAuthHandler creates a new GitHub OAuth handler.
func NewOAuthHandler() *OAuthHandler {
	return &OAuthHandler{}
}

// Provider returns domain.ProviderGitHub.
func (h *OAuthHandler) Provider() domain.Provider { return domain.ProviderGitHub }

// DefaultEndpoints returns GitHub's OAuth endpoints and scopes.
func (h *OAuthHandler) DefaultEndpoints() oauth.Endpoints {
	return oauth.Endpoints{
		AuthURL:     defaultAuthURL,
		TokenURL:    defaultTokenURL,
		UserInfoURL: userInfoURL,
		Scopes:      defaultScopes,
	}
}

// AuthCodeOptions returns nothing extra; GitHub doesn't use access_type=offline.
func (h *OAuthHandler) AuthCodeOptions() []oauth2.AuthCodeOption {
	return nil
}

// AccountID returns the login of the token's owner.
func (h *OAuthHandler) AccountID(ctx context.Context, client *http.Client, endpoint, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("%w: decode user info: %w", domain.ErrMalformedResponse, err)
	}
	if user.Login == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrMalformedResponse, errNoLogin)
	}
	return user.Login, nil
}
