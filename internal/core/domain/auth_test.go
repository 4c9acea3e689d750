package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_Lifecycle(t *testing.T) {
	tests := []struct {
		name       string
		from       AuthState
		event      AuthEvent
		wantState  AuthState
		wantEffect AuthEffect
	}{
		{"initiate from idle", AuthIdle, EventInitiate, AuthAwaitingCode, EffectBuildAuthURL},
		{"initiate from expired", AuthExpired, EventInitiate, AuthAwaitingCode, EffectBuildAuthURL},
		{"code received", AuthAwaitingCode, EventCodeReceived, AuthExchanging, EffectExchangeCode},
		{"exchange ok", AuthExchanging, EventExchangeSucceeded, AuthAuthenticated, EffectPersistCredential},
		{"exchange failed", AuthExchanging, EventExchangeFailed, AuthIdle, EffectNone},
		{"exchange cancelled", AuthExchanging, EventExchangeCancelled, AuthAwaitingCode, EffectNone},
		{"refresh due", AuthAuthenticated, EventRefreshDue, AuthRefreshing, EffectRefreshToken},
		{"refresh ok", AuthRefreshing, EventRefreshSucceeded, AuthAuthenticated, EffectPersistCredential},
		{"refresh transient", AuthRefreshing, EventRefreshFailed, AuthAuthenticated, EffectNone},
		{"refresh rejected", AuthRefreshing, EventRefreshRejected, AuthExpired, EffectDiscardCredential},
		{"no refresh token", AuthAuthenticated, EventReauthRequired, AuthExpired, EffectNone},
		{"revoke authenticated", AuthAuthenticated, EventRevoke, AuthIdle, EffectDiscardCredential},
		{"revoke expired", AuthExpired, EventRevoke, AuthIdle, EffectDiscardCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, effect, err := Transition(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, next)
			assert.Equal(t, tt.wantEffect, effect)
		})
	}
}

func TestTransition_Invalid(t *testing.T) {
	tests := []struct {
		from  AuthState
		event AuthEvent
	}{
		{AuthIdle, EventCodeReceived},
		{AuthAwaitingCode, EventRefreshDue},
		{AuthExpired, EventRefreshDue},
		{AuthAuthenticated, EventExchangeSucceeded},
		{AuthRefreshing, EventInitiate},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			next, effect, err := Transition(tt.from, tt.event)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.ErrorIs(t, err, ErrAuth)
			assert.Equal(t, tt.from, next)
			assert.Equal(t, EffectNone, effect)
		})
	}
}

func TestAuthState_String(t *testing.T) {
	assert.Equal(t, "awaiting_code", AuthAwaitingCode.String())
	assert.Equal(t, "AuthState(42)", AuthState(42).String())
	assert.Equal(t, "refresh_due", EventRefreshDue.String())
}
