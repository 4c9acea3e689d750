package domain

import "errors"

// Error categories. Every leaf error below matches its category with errors.Is,
// so callers can branch on the broad class without enumerating leaves.
var (
	// ErrProtocol indicates a provider response that could not be understood.
	ErrProtocol = errors.New("protocol error")

	// ErrAuth groups authorization failures.
	ErrAuth = errors.New("auth error")

	// ErrCrypto groups encryption and key failures.
	ErrCrypto = errors.New("crypto error")

	// ErrStorage groups persistence failures.
	ErrStorage = errors.New("storage error")

	// ErrSync groups ingestion failures.
	ErrSync = errors.New("sync error")
)

// Error is a classified domain error.
type Error struct {
	category error
	msg      string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.msg
}

// Is reports whether target is this error's category.
func (e *Error) Is(target error) bool {
	return target == e.category
}

// Category returns the broad class of the error.
func (e *Error) Category() error {
	return e.category
}

func classified(category error, msg string) *Error {
	return &Error{category: category, msg: msg}
}

// Protocol errors.
var (
	// ErrMalformedResponse indicates a provider response body that could not be decoded.
	ErrMalformedResponse = classified(ErrProtocol, "malformed provider response")
)

// Authentication errors.
var (
	// ErrStateMismatch indicates the OAuth state did not match an issued one.
	ErrStateMismatch = classified(ErrAuth, "oauth state mismatch")

	// ErrExchangeFailed indicates the token endpoint rejected or did not answer a request.
	ErrExchangeFailed = classified(ErrAuth, "token exchange failed")

	// ErrInvalidGrant indicates the provider rejected a refresh token.
	ErrInvalidGrant = classified(ErrAuth, "refresh token rejected")

	// ErrReauthRequired indicates the user must authorize again.
	// Never retried automatically.
	ErrReauthRequired = classified(ErrAuth, "re-authentication required")

	// ErrInvalidTransition indicates an event that is not valid in the current auth state.
	ErrInvalidTransition = classified(ErrAuth, "invalid auth state transition")
)

// Crypto errors. Never retried automatically.
var (
	// ErrIntegrityFailure indicates authentication of a blob failed or its key is unknown.
	ErrIntegrityFailure = classified(ErrCrypto, "integrity check failed")

	// ErrKeyUnavailable indicates the vault key could not be loaded from the secure key store.
	ErrKeyUnavailable = classified(ErrCrypto, "vault key unavailable")
)

// Storage errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = classified(ErrStorage, "not found")

	// ErrWriteConflict indicates a write could not be applied atomically.
	ErrWriteConflict = classified(ErrStorage, "write conflict")
)

// Sync errors.
var (
	// ErrPageFetchFailed indicates a page could not be fetched from the provider.
	ErrPageFetchFailed = classified(ErrSync, "page fetch failed")

	// ErrAdapterUnavailable indicates no adapter is registered for a provider.
	ErrAdapterUnavailable = classified(ErrSync, "adapter unavailable")

	// ErrAlreadyInProgress indicates a sync for the same account is already running.
	ErrAlreadyInProgress = classified(ErrSync, "sync already in progress")
)

var (
	// ErrAdapter indicates a provider call failed after the adapter exhausted its retries.
	ErrAdapter = errors.New("adapter error")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedProvider indicates an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrNotConfigured indicates a provider has no client configuration.
	ErrNotConfigured = errors.New("provider not configured")
)

// IsRetryable reports whether err may be retried without user action.
// Crypto failures and re-authentication requests must reach the user.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCrypto) || errors.Is(err, ErrReauthRequired) {
		return false
	}
	if errors.Is(err, ErrStateMismatch) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	return true
}
