package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Categories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category error
	}{
		{"ErrMalformedResponse", ErrMalformedResponse, ErrProtocol},
		{"ErrStateMismatch", ErrStateMismatch, ErrAuth},
		{"ErrExchangeFailed", ErrExchangeFailed, ErrAuth},
		{"ErrInvalidGrant", ErrInvalidGrant, ErrAuth},
		{"ErrReauthRequired", ErrReauthRequired, ErrAuth},
		{"ErrInvalidTransition", ErrInvalidTransition, ErrAuth},
		{"ErrIntegrityFailure", ErrIntegrityFailure, ErrCrypto},
		{"ErrKeyUnavailable", ErrKeyUnavailable, ErrCrypto},
		{"ErrNotFound", ErrNotFound, ErrStorage},
		{"ErrWriteConflict", ErrWriteConflict, ErrStorage},
		{"ErrPageFetchFailed", ErrPageFetchFailed, ErrSync},
		{"ErrAdapterUnavailable", ErrAdapterUnavailable, ErrSync},
		{"ErrAlreadyInProgress", ErrAlreadyInProgress, ErrSync},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.category)

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.err)
			assert.ErrorIs(t, wrapped, tt.category)
		})
	}
}

func TestErrors_LeavesAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrStateMismatch, ErrExchangeFailed))
	assert.False(t, errors.Is(ErrNotFound, ErrAuth))
	assert.False(t, errors.Is(ErrIntegrityFailure, ErrStorage))
}

func TestErrors_DoubleWrap(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrPageFetchFailed, ErrReauthRequired)

	assert.ErrorIs(t, err, ErrSync)
	assert.ErrorIs(t, err, ErrAuth)
	assert.ErrorIs(t, err, ErrReauthRequired)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"integrity failure", ErrIntegrityFailure, false},
		{"key unavailable", fmt.Errorf("load: %w", ErrKeyUnavailable), false},
		{"reauth required", fmt.Errorf("refresh: %w", ErrReauthRequired), false},
		{"state mismatch", ErrStateMismatch, false},
		{"exchange failed", ErrExchangeFailed, true},
		{"page fetch failed", ErrPageFetchFailed, true},
		{"plain error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
