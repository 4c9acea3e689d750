package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
	"github.com/wkyt-app/wkyt/internal/keylock"
	"github.com/wkyt-app/wkyt/internal/logger"
)

var oauthLog = logger.Named("oauth")

// OAuthOptions tunes an OAuthClient. Zero values use the defaults.
type OAuthOptions struct {
	// SessionTTL bounds how long a pending authorization stays usable.
	SessionTTL time.Duration

	// RefreshMargin is how close to expiry a token is refreshed.
	RefreshMargin time.Duration

	// RefreshTimeout bounds one shared refresh. The refresh outlives the
	// caller that started it so callers waiting on it are not cancelled too.
	RefreshTimeout time.Duration
}

const (
	defaultSessionTTL     = 10 * time.Minute
	defaultRefreshMargin  = 60 * time.Second
	defaultRefreshTimeout = 60 * time.Second
)

// authSession is one pending authorization-code flow.
type authSession struct {
	id        string
	provider  domain.Provider
	state     domain.AuthState
	verifier  string
	scopes    []string
	expiresAt time.Time
}

// OAuthClient runs the authorization-code flow and keeps stored credentials fresh.
type OAuthClient struct {
	protocol driven.OAuthProtocol
	secrets  driven.SecretStore
	opts     OAuthOptions

	mu       sync.Mutex
	sessions map[string]*authSession
	accounts map[domain.AccountKey]domain.AuthState

	locks   *keylock.Map
	flights singleflight.Group
	now     func() time.Time
}

// NewOAuthClient creates an OAuth client persisting credentials in secrets.
func NewOAuthClient(protocol driven.OAuthProtocol, secrets driven.SecretStore, opts OAuthOptions) *OAuthClient {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = defaultRefreshMargin
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}
	return &OAuthClient{
		protocol: protocol,
		secrets:  secrets,
		opts:     opts,
		sessions: make(map[string]*authSession),
		accounts: make(map[domain.AccountKey]domain.AuthState),
		locks:    keylock.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// InitiateAuth starts a new authorization session for provider.
// Nil scopes use the provider's configured defaults.
func (c *OAuthClient) InitiateAuth(
	_ context.Context,
	provider domain.Provider,
	scopes []string,
) (authURL, state string, expiresAt time.Time, err error) {
	if !provider.IsValid() {
		return "", "", time.Time{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, provider)
	}
	next, _, err := domain.Transition(domain.AuthIdle, domain.EventInitiate)
	if err != nil {
		return "", "", time.Time{}, err
	}
	if len(scopes) == 0 {
		scopes = c.protocol.DefaultScopes(provider)
	}

	pair, err := newPKCEPair()
	if err != nil {
		return "", "", time.Time{}, err
	}
	state, err = newState()
	if err != nil {
		return "", "", time.Time{}, err
	}
	authURL, err = c.protocol.AuthCodeURL(provider, state, pair.challenge, scopes)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("building authorization url: %w", err)
	}

	now := c.now()
	session := &authSession{
		id:        uuid.NewString(),
		provider:  provider,
		state:     next,
		verifier:  pair.verifier,
		scopes:    scopes,
		expiresAt: now.Add(c.opts.SessionTTL),
	}

	c.mu.Lock()
	c.pruneSessionsLocked(now)
	c.sessions[state] = session
	c.mu.Unlock()

	oauthLog.Debug("session %s started for %s", session.id, provider)
	return authURL, state, session.expiresAt, nil
}

// CompleteAuth exchanges code for tokens and stores the credential.
// Nothing is persisted unless the state matches a live session.
func (c *OAuthClient) CompleteAuth(
	ctx context.Context,
	provider domain.Provider,
	code, state string,
) (*domain.Credential, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", domain.ErrInvalidInput)
	}

	session, err := c.claimSession(provider, state)
	if err != nil {
		return nil, err
	}

	grant, err := c.protocol.Exchange(ctx, provider, code, session.verifier)
	if err != nil {
		if ctx.Err() != nil {
			c.settleSession(state, domain.EventExchangeCancelled)
			return nil, err
		}
		c.settleSession(state, domain.EventExchangeFailed)
		return nil, wrapExchangeFailed(err)
	}
	defer grant.AccessToken.Zero()
	defer grant.RefreshToken.Zero()

	accountID, err := c.protocol.AccountID(ctx, provider, grant.AccessToken.Reveal())
	if err != nil {
		c.settleSession(state, exchangeOutcome(ctx))
		return nil, fmt.Errorf("resolving account: %w", err)
	}

	now := c.now()
	cred := domain.Credential{
		Provider:     provider,
		AccountID:    accountID,
		AccessToken:  cloneSecret(grant.AccessToken),
		RefreshToken: cloneSecret(grant.RefreshToken),
		TokenType:    grant.TokenType,
		Scopes:       grant.Scopes,
		ExpiresAt:    grant.ExpiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if len(cred.Scopes) == 0 {
		cred.Scopes = session.scopes
	}
	if err := cred.Validate(now); err != nil {
		c.settleSession(state, domain.EventExchangeFailed)
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}

	unlock := c.locks.Lock(cred.Key().String())
	err = c.secrets.Put(ctx, cred)
	unlock()
	if err != nil {
		c.settleSession(state, exchangeOutcome(ctx))
		return nil, fmt.Errorf("saving credential: %w", err)
	}

	c.settleSession(state, domain.EventExchangeSucceeded)
	c.setAccountState(cred.Key(), domain.AuthAuthenticated)
	oauthLog.Info("session %s authenticated %s", session.id, cred.Key())
	return &cred, nil
}

// exchangeOutcome settles a failed Exchanging step. A cancelled caller
// leaves the session reusable; any other failure ends it.
func exchangeOutcome(ctx context.Context) domain.AuthEvent {
	if ctx.Err() != nil {
		return domain.EventExchangeCancelled
	}
	return domain.EventExchangeFailed
}

// claimSession moves a live session to Exchanging so no other caller can use it.
func (c *OAuthClient) claimSession(provider domain.Provider, state string) (*authSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[state]
	if !ok || state == "" || session.provider != provider {
		return nil, domain.ErrStateMismatch
	}
	if !c.now().Before(session.expiresAt) {
		delete(c.sessions, state)
		return nil, domain.ErrStateMismatch
	}

	next, _, err := domain.Transition(session.state, domain.EventCodeReceived)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", session.id, err)
	}
	session.state = next

	claimed := *session
	return &claimed, nil
}

// settleSession applies the exchange outcome; sessions that leave
// AwaitingCode are finished and dropped.
func (c *OAuthClient) settleSession(state string, event domain.AuthEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[state]
	if !ok {
		return
	}
	next, _, err := domain.Transition(session.state, event)
	if err != nil {
		oauthLog.Warn("session %s: %v", session.id, err)
		delete(c.sessions, state)
		return
	}
	if next != domain.AuthAwaitingCode {
		delete(c.sessions, state)
		return
	}
	session.state = next
}

func (c *OAuthClient) pruneSessionsLocked(now time.Time) {
	for state, session := range c.sessions {
		if !now.Before(session.expiresAt) {
			delete(c.sessions, state)
		}
	}
}

// PendingSessions returns the number of live authorization sessions.
func (c *OAuthClient) PendingSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneSessionsLocked(c.now())
	return len(c.sessions)
}

// AccessToken returns a usable access token for the account, refreshing
// it when it is within the refresh margin of expiry.
func (c *OAuthClient) AccessToken(ctx context.Context, provider domain.Provider, accountID string) (string, error) {
	cred, err := c.loadCredential(ctx, provider, accountID)
	if err != nil {
		return "", err
	}
	defer cred.Zero()

	if !cred.NeedsRefresh(c.now(), c.opts.RefreshMargin) {
		return cred.AccessToken.Reveal(), nil
	}
	return c.refresh(ctx, cred.Key(), false)
}

// ForceRefresh refreshes the account's token regardless of expiry.
func (c *OAuthClient) ForceRefresh(ctx context.Context, provider domain.Provider, accountID string) (string, error) {
	return c.refresh(ctx, domain.AccountKey{Provider: provider, AccountID: accountID}, true)
}

// refresh collapses concurrent refreshes of one account into a single
// exchange. Each caller stops waiting when its own ctx ends; the exchange
// itself runs detached, bounded by RefreshTimeout.
func (c *OAuthClient) refresh(ctx context.Context, key domain.AccountKey, force bool) (string, error) {
	flight := "refresh:" + key.String()
	if force {
		flight = "force:" + key.String()
	}
	ch := c.flights.DoChan(flight, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.RefreshTimeout)
		defer cancel()

		unlock := c.locks.Lock(key.String())
		defer unlock()
		return c.refreshLocked(flightCtx, key, force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

//nolint:gocyclo // Linear walk through the refresh outcomes.
func (c *OAuthClient) refreshLocked(ctx context.Context, key domain.AccountKey, force bool) (string, error) {
	cred, err := c.loadCredential(ctx, key.Provider, key.AccountID)
	if err != nil {
		return "", err
	}
	defer cred.Zero()

	now := c.now()
	// Another caller may have refreshed while we waited for the lock.
	if !force && !cred.NeedsRefresh(now, c.opts.RefreshMargin) {
		return cred.AccessToken.Reveal(), nil
	}
	// The provider already rejected this credential; only its deletion failed.
	if state, ok := c.accountState(key); ok && state == domain.AuthExpired {
		if err := c.secrets.Delete(ctx, key.Provider, key.AccountID); err != nil {
			oauthLog.Error("discarding rejected credential %s: %v", key, err)
		}
		return "", fmt.Errorf("%w: %s was rejected by the provider", domain.ErrReauthRequired, key)
	}
	if !cred.HasRefreshToken() {
		if cred.IsExpired(now) || force {
			_ = c.applyAccountEvent(key, domain.EventReauthRequired)
			return "", fmt.Errorf("%w: %s has no refresh token", domain.ErrReauthRequired, key)
		}
		return cred.AccessToken.Reveal(), nil
	}

	if err := c.applyAccountEvent(key, domain.EventRefreshDue); err != nil {
		return "", err
	}
	oauthLog.Debug("refreshing %s", key)

	grant, err := c.protocol.Refresh(ctx, key.Provider, cred.RefreshToken.Reveal())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidGrant) {
			_ = c.applyAccountEvent(key, domain.EventRefreshRejected)
			if delErr := c.secrets.Delete(ctx, key.Provider, key.AccountID); delErr != nil {
				oauthLog.Error("discarding rejected credential %s: %v", key, delErr)
			}
			oauthLog.Warn("refresh token for %s rejected, re-authorization required", key)
			return "", fmt.Errorf("%w: %w", domain.ErrReauthRequired, err)
		}
		_ = c.applyAccountEvent(key, domain.EventRefreshFailed)
		return "", fmt.Errorf("refreshing %s: %w", key, err)
	}
	defer grant.AccessToken.Zero()
	defer grant.RefreshToken.Zero()

	updated := domain.Credential{
		Provider:     cred.Provider,
		AccountID:    cred.AccountID,
		AccessToken:  cloneSecret(grant.AccessToken),
		RefreshToken: cloneSecret(cred.RefreshToken),
		TokenType:    grant.TokenType,
		Scopes:       grant.Scopes,
		ExpiresAt:    grant.ExpiresAt,
		CreatedAt:    cred.CreatedAt,
		UpdatedAt:    now,
	}
	if !grant.RefreshToken.IsEmpty() {
		updated.RefreshToken = cloneSecret(grant.RefreshToken)
	}
	if updated.TokenType == "" {
		updated.TokenType = cred.TokenType
	}
	if len(updated.Scopes) == 0 {
		updated.Scopes = cred.Scopes
	}
	defer updated.Zero()

	if err := updated.Validate(now); err != nil {
		_ = c.applyAccountEvent(key, domain.EventRefreshFailed)
		return "", fmt.Errorf("%w: refreshed token for %s: %w", domain.ErrMalformedResponse, key, err)
	}
	if err := c.secrets.Put(ctx, updated); err != nil {
		_ = c.applyAccountEvent(key, domain.EventRefreshFailed)
		return "", fmt.Errorf("saving refreshed credential: %w", err)
	}
	_ = c.applyAccountEvent(key, domain.EventRefreshSucceeded)
	return updated.AccessToken.Reveal(), nil
}

// Revoke revokes the account's token at the provider when possible and
// deletes the stored credential. Revoking an unknown account succeeds.
func (c *OAuthClient) Revoke(ctx context.Context, provider domain.Provider, accountID string) error {
	key := domain.AccountKey{Provider: provider, AccountID: accountID}
	unlock := c.locks.Lock(key.String())
	defer unlock()

	cred, err := c.secrets.Get(ctx, provider, accountID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.clearAccountState(key)
		return nil
	case errors.Is(err, domain.ErrIntegrityFailure):
		// The blob cannot be opened, so there is nothing to revoke remotely.
		oauthLog.Warn("credential for %s unreadable, deleting locally", key)
	case err != nil:
		return fmt.Errorf("loading credential: %w", err)
	default:
		token := cred.RefreshToken
		if token.IsEmpty() {
			token = cred.AccessToken
		}
		if rerr := c.protocol.Revoke(ctx, provider, token.Reveal()); rerr != nil {
			oauthLog.Warn("provider revocation for %s failed: %v", key, rerr)
		}
		cred.Zero()
	}

	if err := c.secrets.Delete(ctx, provider, accountID); err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	c.clearAccountState(key)
	oauthLog.Info("revoked %s", key)
	return nil
}

// State reports the auth state of an account.
func (c *OAuthClient) State(provider domain.Provider, accountID string) domain.AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.accounts[domain.AccountKey{Provider: provider, AccountID: accountID}]
	if !ok {
		return domain.AuthIdle
	}
	return state
}

// TokenSource binds the client to one account for provider adapters.
func (c *OAuthClient) TokenSource(provider domain.Provider, accountID string) driven.TokenSource {
	return &accountTokenSource{client: c, provider: provider, accountID: accountID}
}

func (c *OAuthClient) loadCredential(ctx context.Context, provider domain.Provider, accountID string) (*domain.Credential, error) {
	cred, err := c.secrets.Get(ctx, provider, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: no credential for %s/%s", domain.ErrReauthRequired, provider, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading credential: %w", err)
	}
	if _, ok := c.accountState(cred.Key()); !ok {
		c.setAccountState(cred.Key(), domain.AuthAuthenticated)
	}
	return cred, nil
}

// applyAccountEvent advances an account's state machine.
func (c *OAuthClient) applyAccountEvent(key domain.AccountKey, event domain.AuthEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.accounts[key]
	if !ok {
		current = domain.AuthAuthenticated
	}
	next, _, err := domain.Transition(current, event)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	c.accounts[key] = next
	return nil
}

func (c *OAuthClient) accountState(key domain.AccountKey) (domain.AuthState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.accounts[key]
	return state, ok
}

func (c *OAuthClient) setAccountState(key domain.AccountKey, state domain.AuthState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[key] = state
}

func (c *OAuthClient) clearAccountState(key domain.AccountKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.accounts, key)
}

// accountTokenSource adapts OAuthClient to driven.TokenSource.
type accountTokenSource struct {
	client    *OAuthClient
	provider  domain.Provider
	accountID string
}

func (s *accountTokenSource) Token(ctx context.Context) (string, error) {
	return s.client.AccessToken(ctx, s.provider, s.accountID)
}

func (s *accountTokenSource) ForceRefresh(ctx context.Context) (string, error) {
	return s.client.ForceRefresh(ctx, s.provider, s.accountID)
}

func wrapExchangeFailed(err error) error {
	if errors.Is(err, domain.ErrExchangeFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrExchangeFailed, err)
}

// cloneSecret copies a secret so the grant's buffer can be zeroed.
func cloneSecret(s domain.Secret) domain.Secret {
	if s == nil {
		return nil
	}
	out := make(domain.Secret, len(s))
	copy(out, s)
	return out
}
