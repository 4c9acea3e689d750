package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/wkyt-app/wkyt/internal/config"
	"github.com/wkyt-app/wkyt/internal/core/domain"
)

// testHandler implements Handler against the fake provider.
type testHandler struct {
	endpoints Endpoints
}

func (h *testHandler) Provider() domain.Provider { return domain.ProviderGoogle }

func (h *testHandler) DefaultEndpoints() Endpoints { return h.endpoints }

func (h *testHandler) AuthCodeOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
}

func (h *testHandler) AccountID(ctx context.Context, client *http.Client, userInfoURL, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	return info.Email, nil
}

// fakeProvider is an httptest OAuth server.
type fakeProvider struct {
	server      *httptest.Server
	tokenStatus int
	tokenBody   map[string]any
	delay       time.Duration
	lastForm    url.Values
	revoked     string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	f := &fakeProvider{tokenStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		_ = r.ParseForm()
		f.lastForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.tokenStatus)
		_ = json.NewEncoder(w).Encode(f.tokenBody)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "alice@example.com"})
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.revoked = r.PostForm.Get("token")
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestProtocol(t *testing.T, f *fakeProvider, timeout time.Duration) *Protocol {
	t.Helper()
	cfg := &config.Config{
		NetworkTimeout: timeout,
		Providers: map[domain.Provider]config.Provider{
			domain.ProviderGoogle: {
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				RedirectURI:  config.DefaultRedirectURI,
			},
		},
	}
	h := &testHandler{endpoints: Endpoints{
		AuthURL:     f.server.URL + "/auth",
		TokenURL:    f.server.URL + "/token",
		RevokeURL:   f.server.URL + "/revoke",
		UserInfoURL: f.server.URL + "/userinfo",
		Scopes:      []string{"email"},
	}}
	p := NewProtocol(cfg, h)
	p.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestProtocol_AuthCodeURL(t *testing.T) {
	f := newFakeProvider(t)
	p := newTestProtocol(t, f, time.Second)

	raw, err := p.AuthCodeURL(domain.ProviderGoogle, "st4te", "ch4llenge", nil)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/auth", u.Path)
	assert.Equal(t, "st4te", q.Get("state"))
	assert.Equal(t, "ch4llenge", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, config.DefaultRedirectURI, q.Get("redirect_uri"))
	assert.Equal(t, "email", q.Get("scope"))
}

func TestProtocol_Exchange_Success(t *testing.T) {
	f := newFakeProvider(t)
	f.tokenBody = map[string]any{
		"access_token":  "T1",
		"refresh_token": "R1",
		"token_type":    "Bearer",
		"expires_in":    3600,
		"scope":         "email openid",
	}
	p := newTestProtocol(t, f, time.Second)

	grant, err := p.Exchange(context.Background(), domain.ProviderGoogle, "abc", "verifier-123")
	require.NoError(t, err)

	assert.Equal(t, "T1", grant.AccessToken.Reveal())
	assert.Equal(t, "R1", grant.RefreshToken.Reveal())
	assert.Equal(t, "Bearer", grant.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), grant.ExpiresAt, 5*time.Second)
	assert.Equal(t, []string{"email", "openid"}, grant.Scopes)

	assert.Equal(t, "authorization_code", f.lastForm.Get("grant_type"))
	assert.Equal(t, "abc", f.lastForm.Get("code"))
	assert.Equal(t, "verifier-123", f.lastForm.Get("code_verifier"))
}

func TestProtocol_Exchange_NonExpiringToken(t *testing.T) {
	f := newFakeProvider(t)
	f.tokenBody = map[string]any{"access_token": "gho_x", "token_type": "bearer", "scope": "repo,read:user"}
	p := newTestProtocol(t, f, time.Second)

	grant, err := p.Exchange(context.Background(), domain.ProviderGoogle, "abc", "v")
	require.NoError(t, err)
	assert.Equal(t, p.now().Add(NonExpiringTokenLifetime), grant.ExpiresAt)
	assert.Equal(t, []string{"repo", "read:user"}, grant.Scopes)
	assert.True(t, grant.RefreshToken.IsEmpty())
}

func TestProtocol_Exchange_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    map[string]any
		delay   time.Duration
		wantErr error
	}{
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    map[string]any{"error": "invalid_request"},
			wantErr: domain.ErrExchangeFailed,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    map[string]any{},
			wantErr: domain.ErrExchangeFailed,
		},
		{
			name:    "invalid grant on exchange",
			status:  http.StatusBadRequest,
			body:    map[string]any{"error": "invalid_grant", "error_description": "Bad Request"},
			wantErr: domain.ErrInvalidGrant,
		},
		{
			name:    "timeout",
			status:  http.StatusOK,
			body:    map[string]any{"access_token": "T1", "expires_in": 3600},
			delay:   300 * time.Millisecond,
			wantErr: domain.ErrExchangeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeProvider(t)
			f.tokenStatus = tt.status
			f.tokenBody = tt.body
			f.delay = tt.delay
			p := newTestProtocol(t, f, 100*time.Millisecond)

			_, err := p.Exchange(context.Background(), domain.ProviderGoogle, "abc", "v")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, domain.ErrAuth)
		})
	}
}

func TestProtocol_Refresh(t *testing.T) {
	t.Run("keeps refresh token when not rotated", func(t *testing.T) {
		f := newFakeProvider(t)
		f.tokenBody = map[string]any{"access_token": "T2", "token_type": "Bearer", "expires_in": 3600}
		p := newTestProtocol(t, f, time.Second)

		grant, err := p.Refresh(context.Background(), domain.ProviderGoogle, "R1")
		require.NoError(t, err)
		assert.Equal(t, "T2", grant.AccessToken.Reveal())
		assert.True(t, grant.RefreshToken.IsEmpty())
		assert.Equal(t, "refresh_token", f.lastForm.Get("grant_type"))
		assert.Equal(t, "R1", f.lastForm.Get("refresh_token"))
	})

	t.Run("rotated refresh token", func(t *testing.T) {
		f := newFakeProvider(t)
		f.tokenBody = map[string]any{"access_token": "T2", "refresh_token": "R2", "expires_in": 3600}
		p := newTestProtocol(t, f, time.Second)

		grant, err := p.Refresh(context.Background(), domain.ProviderGoogle, "R1")
		require.NoError(t, err)
		assert.Equal(t, "R2", grant.RefreshToken.Reveal())
	})

	t.Run("invalid grant", func(t *testing.T) {
		f := newFakeProvider(t)
		f.tokenStatus = http.StatusBadRequest
		f.tokenBody = map[string]any{"error": "invalid_grant", "error_description": "Token has been expired or revoked."}
		p := newTestProtocol(t, f, time.Second)

		_, err := p.Refresh(context.Background(), domain.ProviderGoogle, "R1")
		assert.ErrorIs(t, err, domain.ErrInvalidGrant)
	})

	t.Run("empty refresh token", func(t *testing.T) {
		f := newFakeProvider(t)
		p := newTestProtocol(t, f, time.Second)

		_, err := p.Refresh(context.Background(), domain.ProviderGoogle, "")
		assert.ErrorIs(t, err, domain.ErrInvalidGrant)
	})
}

func TestProtocol_AccountID(t *testing.T) {
	f := newFakeProvider(t)
	p := newTestProtocol(t, f, time.Second)

	id, err := p.AccountID(context.Background(), domain.ProviderGoogle, "T1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", id)

	_, err = p.AccountID(context.Background(), domain.ProviderGoogle, "wrong")
	assert.Error(t, err)
}

func TestProtocol_Revoke(t *testing.T) {
	f := newFakeProvider(t)
	p := newTestProtocol(t, f, time.Second)

	require.NoError(t, p.Revoke(context.Background(), domain.ProviderGoogle, "R1"))
	assert.Equal(t, "R1", f.revoked)
}

func TestProtocol_UnconfiguredProvider(t *testing.T) {
	cfg := &config.Config{Providers: map[domain.Provider]config.Provider{}}
	p := NewProtocol(cfg, &testHandler{endpoints: Endpoints{Scopes: []string{"email"}}})

	_, err := p.AuthCodeURL(domain.ProviderGoogle, "s", "c", nil)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Equal(t, []string{"email"}, p.DefaultScopes(domain.ProviderGoogle))

	_, err = p.Exchange(context.Background(), domain.ProviderGitHub, "c", "v")
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}
