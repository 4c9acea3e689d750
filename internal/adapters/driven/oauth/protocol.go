package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/wkyt-app/wkyt/internal/config"
	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// Ensure Protocol implements the interface.
var _ driven.OAuthProtocol = (*Protocol)(nil)

// NonExpiringTokenLifetime is the lifetime assumed for tokens issued
// without expires_in, such as GitHub OAuth app tokens.
const NonExpiringTokenLifetime = 365 * 24 * time.Hour

type provider struct {
	handler     Handler
	configured  error
	oauth       oauth2.Config
	revokeURL   string
	userInfoURL string
}

// Protocol speaks OAuth2 to every registered provider.
type Protocol struct {
	providers map[domain.Provider]*provider
	client    *http.Client
	timeout   time.Duration
	now       func() time.Time
}

// NewProtocol creates a protocol for the given handlers, taking client
// registrations and endpoint overrides from cfg.
func NewProtocol(cfg *config.Config, handlers ...Handler) *Protocol {
	timeout := cfg.NetworkTimeout
	if timeout <= 0 {
		timeout = config.DefaultNetworkTimeout
	}

	p := &Protocol{
		providers: make(map[domain.Provider]*provider, len(handlers)),
		client:    &http.Client{Timeout: timeout},
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, h := range handlers {
		pc, err := cfg.Provider(h.Provider())
		if err != nil {
			p.providers[h.Provider()] = &provider{handler: h, configured: err}
			continue
		}

		def := h.DefaultEndpoints()
		p.providers[h.Provider()] = &provider{
			handler: h,
			oauth: oauth2.Config{
				ClientID:     pc.ClientID,
				ClientSecret: pc.ClientSecret,
				RedirectURL:  pc.RedirectURI,
				Endpoint: oauth2.Endpoint{
					AuthURL:  firstNonEmpty(pc.AuthURL, def.AuthURL),
					TokenURL: firstNonEmpty(pc.TokenURL, def.TokenURL),
				},
				Scopes: firstNonEmptySlice(pc.Scopes, def.Scopes),
			},
			revokeURL:   firstNonEmpty(pc.RevokeURL, def.RevokeURL),
			userInfoURL: firstNonEmpty(pc.UserInfoURL, def.UserInfoURL),
		}
	}
	return p
}

func (p *Protocol) lookup(dp domain.Provider) (*provider, error) {
	pr, ok := p.providers[dp]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, dp)
	}
	if pr.configured != nil {
		return nil, pr.configured
	}
	return pr, nil
}

// AuthCodeURL builds the authorization URL carrying state and the S256 challenge.
func (p *Protocol) AuthCodeURL(dp domain.Provider, state, challenge string, scopes []string) (string, error) {
	pr, err := p.lookup(dp)
	if err != nil {
		return "", err
	}

	conf := pr.oauth
	if len(scopes) > 0 {
		conf.Scopes = scopes
	}
	opts := append([]oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}, pr.handler.AuthCodeOptions()...)

	return conf.AuthCodeURL(state, opts...), nil
}

// Exchange swaps an authorization code and PKCE verifier for tokens.
func (p *Protocol) Exchange(ctx context.Context, dp domain.Provider, code, verifier string) (*driven.TokenGrant, error) {
	pr, err := p.lookup(dp)
	if err != nil {
		return nil, err
	}

	ctx, cancel := p.withClient(ctx)
	defer cancel()

	tok, err := pr.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, classifyTokenError("exchange", err)
	}
	return p.toGrant(tok, ""), nil
}

// Refresh redeems a refresh token.
func (p *Protocol) Refresh(ctx context.Context, dp domain.Provider, refreshToken string) (*driven.TokenGrant, error) {
	pr, err := p.lookup(dp)
	if err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", domain.ErrInvalidGrant)
	}

	ctx, cancel := p.withClient(ctx)
	defer cancel()

	// An already-expired token forces the source to hit the token endpoint.
	src := pr.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyTokenError("refresh", err)
	}
	return p.toGrant(tok, refreshToken), nil
}

// AccountID asks the provider who owns accessToken.
func (p *Protocol) AccountID(ctx context.Context, dp domain.Provider, accessToken string) (string, error) {
	pr, err := p.lookup(dp)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	id, err := pr.handler.AccountID(ctx, p.client, pr.userInfoURL, accessToken)
	if err != nil {
		return "", fmt.Errorf("fetch account identity: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty account identity", domain.ErrMalformedResponse)
	}
	return id, nil
}

// Revoke posts token to the provider's RFC 7009 revocation endpoint.
// Providers without one are a no-op.
func (p *Protocol) Revoke(ctx context.Context, dp domain.Provider, token string) error {
	pr, err := p.lookup(dp)
	if err != nil {
		return err
	}
	if pr.revokeURL == "" || token == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pr.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("revoke failed with status %d", resp.StatusCode)
	}
	return nil
}

// DefaultScopes returns the configured scopes, or the provider's defaults.
func (p *Protocol) DefaultScopes(dp domain.Provider) []string {
	pr, ok := p.providers[dp]
	if !ok {
		return nil
	}
	if pr.configured != nil {
		return pr.handler.DefaultEndpoints().Scopes
	}
	return pr.oauth.Scopes
}

// withClient bounds ctx by the network timeout and routes x/oauth2 through our client.
func (p *Protocol) withClient(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	return context.WithTimeout(ctx, p.timeout)
}

// toGrant converts an oauth2 token. previousRefresh is blanked out of the
// result so callers can tell the refresh token was not rotated.
func (p *Protocol) toGrant(tok *oauth2.Token, previousRefresh string) *driven.TokenGrant {
	grant := &driven.TokenGrant{
		AccessToken: domain.NewSecret(tok.AccessToken),
		TokenType:   tok.Type(),
		ExpiresAt:   tok.Expiry,
		Scopes:      parseScopes(tok.Extra("scope")),
	}
	if tok.RefreshToken != "" && tok.RefreshToken != previousRefresh {
		grant.RefreshToken = domain.NewSecret(tok.RefreshToken)
	}
	if grant.ExpiresAt.IsZero() {
		grant.ExpiresAt = p.now().Add(NonExpiringTokenLifetime)
	}
	return grant
}

// parseScopes splits a scope response value. Google separates with spaces,
// GitHub with commas.
func parseScopes(v any) []string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
}

// classifyTokenError maps token endpoint failures onto the domain taxonomy.
func classifyTokenError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" {
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidGrant, describe(re))
		}
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return fmt.Errorf("%s: %w: status %d: %s", op, domain.ErrExchangeFailed, status, describe(re))
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: timeout: %w", op, domain.ErrExchangeFailed, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrExchangeFailed, err)
}

func describe(re *oauth2.RetrieveError) string {
	switch {
	case re.ErrorCode != "" && re.ErrorDescription != "":
		return re.ErrorCode + " - " + re.ErrorDescription
	case re.ErrorCode != "":
		return re.ErrorCode
	default:
		return strings.TrimSpace(string(re.Body))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptySlice(values ...[]string) []string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}
