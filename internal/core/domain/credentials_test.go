package domain

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_NeverRendersValue(t *testing.T) {
	s := NewSecret("ya29.token")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
	assert.Equal(t, "ya29.token", s.Reveal())

	cred := Credential{AccessToken: s}
	out, err := json.Marshal(cred)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "ya29.token")
}

func TestSecret_Zero(t *testing.T) {
	s := NewSecret("abc")
	s.Zero()
	assert.Equal(t, []byte{0, 0, 0}, []byte(s))
	assert.Nil(t, NewSecret(""))
}

func TestCredential_Validate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	valid := func() Credential {
		return Credential{
			Provider:    ProviderGoogle,
			AccountID:   "alice@example.com",
			AccessToken: NewSecret("T1"),
			ExpiresAt:   now.Add(time.Hour),
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Credential)
	}{
		{"unknown provider", func(c *Credential) { c.Provider = "dropbox" }},
		{"missing account", func(c *Credential) { c.AccountID = "" }},
		{"missing access token", func(c *Credential) { c.AccessToken = nil }},
		{"expired", func(c *Credential) { c.ExpiresAt = now.Add(-time.Second) }},
		{"expires now", func(c *Credential) { c.ExpiresAt = now }},
	}

	c := valid()
	require.NoError(t, c.Validate(now))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate(now)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCredential_NeedsRefresh(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Credential{ExpiresAt: now.Add(30 * time.Second)}

	assert.True(t, c.NeedsRefresh(now, time.Minute))
	assert.False(t, c.NeedsRefresh(now, 10*time.Second))
	assert.False(t, c.IsExpired(now))
	assert.True(t, c.IsExpired(now.Add(30*time.Second)))
}

func TestCredential_KeyAndRefreshToken(t *testing.T) {
	c := Credential{Provider: ProviderGitHub, AccountID: "octocat"}
	assert.Equal(t, AccountKey{Provider: ProviderGitHub, AccountID: "octocat"}, c.Key())
	assert.Equal(t, "github/octocat", c.Key().String())
	assert.False(t, c.HasRefreshToken())

	c.RefreshToken = NewSecret("R1")
	assert.True(t, c.HasRefreshToken())

	c.Zero()
	assert.Equal(t, []byte{0, 0}, []byte(c.RefreshToken))
}
