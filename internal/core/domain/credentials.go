package domain

import (
	"fmt"
	"time"
)

const redacted = "[REDACTED]"

// Secret holds sensitive bytes such as OAuth tokens.
// It never renders its contents through fmt, logs or text encoders.
type Secret []byte

// NewSecret copies s into a new Secret.
func NewSecret(s string) Secret {
	if s == "" {
		return nil
	}
	return Secret(s)
}

// Reveal returns the secret value. Callers must not log the result.
func (s Secret) Reveal() string {
	return string(s)
}

// IsEmpty reports whether the secret holds no bytes.
func (s Secret) IsEmpty() bool {
	return len(s) == 0
}

// Zero overwrites the secret bytes in place.
func (s Secret) Zero() {
	for i := range s {
		s[i] = 0
	}
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	return redacted
}

// GoString implements fmt.GoStringer.
func (s Secret) GoString() string {
	return redacted
}

// MarshalText implements encoding.TextMarshaler.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// AccountKey identifies one authorised account at one provider.
type AccountKey struct {
	Provider  Provider
	AccountID string
}

// String returns "provider/account".
func (k AccountKey) String() string {
	return fmt.Sprintf("%s/%s", k.Provider, k.AccountID)
}

// Credential holds the OAuth tokens for one provider account.
// The access token is only ever persisted encrypted.
type Credential struct {
	// Provider issued the tokens.
	Provider Provider
	// AccountID is the provider-side account identity (email or login).
	AccountID string

	// AccessToken is the bearer token for API access.
	AccessToken Secret
	// RefreshToken obtains new access tokens. Empty when the provider issued none.
	RefreshToken Secret
	// TokenType is typically "Bearer".
	TokenType string
	// Scopes granted by the provider.
	Scopes []string
	// ExpiresAt is when the access token expires.
	ExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key returns the account key of the credential.
func (c *Credential) Key() AccountKey {
	return AccountKey{Provider: c.Provider, AccountID: c.AccountID}
}

// Validate checks the credential is complete and unexpired at now.
func (c *Credential) Validate(now time.Time) error {
	switch {
	case !c.Provider.IsValid():
		return fmt.Errorf("%w: provider %q", ErrInvalidInput, c.Provider)
	case c.AccountID == "":
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	case c.AccessToken.IsEmpty():
		return fmt.Errorf("%w: access token is required", ErrInvalidInput)
	case !c.ExpiresAt.After(now):
		return fmt.Errorf("%w: credential already expired at %s", ErrInvalidInput, c.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// IsExpired reports whether the access token has expired at now.
func (c *Credential) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// NeedsRefresh reports whether at most margin remains before expiry.
func (c *Credential) NeedsRefresh(now time.Time, margin time.Duration) bool {
	return !c.ExpiresAt.After(now.Add(margin))
}

// HasRefreshToken reports whether the credential can be refreshed.
func (c *Credential) HasRefreshToken() bool {
	return !c.RefreshToken.IsEmpty()
}

// Zero wipes the token bytes held by the credential.
func (c *Credential) Zero() {
	c.AccessToken.Zero()
	c.RefreshToken.Zero()
}
