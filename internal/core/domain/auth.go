package domain

import "fmt"

// AuthState is a step in the OAuth credential lifecycle.
type AuthState int

const (
	AuthIdle AuthState = iota
	AuthAwaitingCode
	AuthExchanging
	AuthAuthenticated
	AuthRefreshing
	AuthExpired
)

var authStateNames = map[AuthState]string{
	AuthIdle:          "idle",
	AuthAwaitingCode:  "awaiting_code",
	AuthExchanging:    "exchanging",
	AuthAuthenticated: "authenticated",
	AuthRefreshing:    "refreshing",
	AuthExpired:       "expired",
}

// String returns the state name.
func (s AuthState) String() string {
	if name, ok := authStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AuthState(%d)", int(s))
}

// AuthEvent drives a transition of the lifecycle.
type AuthEvent int

const (
	// EventInitiate starts an authorization request.
	EventInitiate AuthEvent = iota
	// EventCodeReceived hands a callback code to the client.
	EventCodeReceived
	// EventExchangeSucceeded reports tokens returned for the code.
	EventExchangeSucceeded
	// EventExchangeFailed reports a rejected or timed out exchange.
	EventExchangeFailed
	// EventExchangeCancelled reports a caller cancellation during exchange.
	EventExchangeCancelled
	// EventRefreshDue reports the access token is within the refresh margin.
	EventRefreshDue
	// EventRefreshSucceeded reports a new access token.
	EventRefreshSucceeded
	// EventRefreshFailed reports a transient refresh failure or cancellation.
	EventRefreshFailed
	// EventRefreshRejected reports the provider invalidated the refresh token.
	EventRefreshRejected
	// EventReauthRequired reports an expired token that cannot be refreshed.
	EventReauthRequired
	// EventRevoke discards the account's credential.
	EventRevoke
)

var authEventNames = map[AuthEvent]string{
	EventInitiate:          "initiate",
	EventCodeReceived:      "code_received",
	EventExchangeSucceeded: "exchange_succeeded",
	EventExchangeFailed:    "exchange_failed",
	EventExchangeCancelled: "exchange_cancelled",
	EventRefreshDue:        "refresh_due",
	EventRefreshSucceeded:  "refresh_succeeded",
	EventRefreshFailed:     "refresh_failed",
	EventRefreshRejected:   "refresh_rejected",
	EventReauthRequired:    "reauth_required",
	EventRevoke:            "revoke",
}

// String returns the event name.
func (e AuthEvent) String() string {
	if name, ok := authEventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("AuthEvent(%d)", int(e))
}

// AuthEffect is the side effect the caller performs after a transition.
type AuthEffect int

const (
	EffectNone AuthEffect = iota
	EffectBuildAuthURL
	EffectExchangeCode
	EffectPersistCredential
	EffectRefreshToken
	EffectDiscardCredential
)

type authTransition struct {
	from  AuthState
	event AuthEvent
}

type authOutcome struct {
	to     AuthState
	effect AuthEffect
}

var authTransitions = map[authTransition]authOutcome{
	{AuthIdle, EventInitiate}:                {AuthAwaitingCode, EffectBuildAuthURL},
	{AuthExpired, EventInitiate}:             {AuthAwaitingCode, EffectBuildAuthURL},
	{AuthAwaitingCode, EventCodeReceived}:    {AuthExchanging, EffectExchangeCode},
	{AuthExchanging, EventExchangeSucceeded}: {AuthAuthenticated, EffectPersistCredential},
	{AuthExchanging, EventExchangeFailed}:    {AuthIdle, EffectNone},
	{AuthExchanging, EventExchangeCancelled}: {AuthAwaitingCode, EffectNone},
	{AuthAuthenticated, EventRefreshDue}:     {AuthRefreshing, EffectRefreshToken},
	{AuthAuthenticated, EventReauthRequired}: {AuthExpired, EffectNone},
	{AuthRefreshing, EventRefreshSucceeded}:  {AuthAuthenticated, EffectPersistCredential},
	{AuthRefreshing, EventRefreshFailed}:     {AuthAuthenticated, EffectNone},
	{AuthRefreshing, EventRefreshRejected}:   {AuthExpired, EffectDiscardCredential},
}

// Transition applies event to state. Revoke is valid from every state.
// Any other pair not listed in the lifecycle returns ErrInvalidTransition.
func Transition(state AuthState, event AuthEvent) (AuthState, AuthEffect, error) {
	if event == EventRevoke {
		return AuthIdle, EffectDiscardCredential, nil
	}
	out, ok := authTransitions[authTransition{from: state, event: event}]
	if !ok {
		return state, EffectNone, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, state)
	}
	return out.to, out.effect, nil
}
