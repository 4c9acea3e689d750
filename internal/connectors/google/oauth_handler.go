package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/wkyt-app/wkyt/internal/adapters/driven/oauth"
	"github.com/wkyt-app/wkyt/internal/core/domain"
)

// Ensure OAuthHandler implements the interface.
var _ oauth.Handler = (*OAuthHandler)(nil)

// Google OAuth endpoints.
const (
	defaultAuthURL = "https://accounts.google.com/o/oauth2/auth"
	//nolint:gosec // G101: Not credentials, OAuth endpoint URL
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	//nolint:gosec // G101: Not credentials, OAuth endpoint URL
	defaultRevokeURL = "https://oauth2.googleapis.com/revoke"
	userInfoURL      = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// defaultScopes read mail and identify the account.
var defaultScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
}

// UserInfo contains the user's basic profile information from Google.
type UserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// OAuthHandler implements OAuth operations for Google.
type OAuthHandler struct{}

// NewOAuthHandler creates a new Google OAuth handler.
func NewOAuthHandler() *OAuthHandler {
	return &OAuthHandler{}
}

// Provider returns domain.ProviderGoogle.
func (h *OAuthHandler) Provider() domain.Provider { return domain.ProviderGoogle }

// DefaultEndpoints returns Google's OAuth endpoints and scopes.
func (h *OAuthHandler) DefaultEndpoints() oauth.Endpoints {
	return oauth.Endpoints{
		AuthURL:     defaultAuthURL,
		TokenURL:    defaultTokenURL,
		RevokeURL:   defaultRevokeURL,
		UserInfoURL: userInfoURL,
		Scopes:      defaultScopes,
	}
}

// AuthCodeOptions asks for a refresh token. Google only issues one with
// access_type=offline, and prompt=consent makes it reissue on re-auth.
func (h *OAuthHandler) AuthCodeOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	}
}

// AccountID returns the email address of the token's owner.
func (h *OAuthHandler) AccountID(ctx context.Context, client *http.Client, endpoint, accessToken string) (string, error) {
	info, err := GetUserInfo(ctx, client, endpoint, accessToken)
	if err != nil {
		return "", err
	}
	return info.Email, nil
}

// GetUserInfo fetches the user's profile information using an access token.
func GetUserInfo(ctx context.Context, client *http.Client, endpoint, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}

	var userInfo UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("%w: decode user info: %w", domain.ErrMalformedResponse, err)
	}
	return &userInfo, nil
}
