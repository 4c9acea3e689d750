package domain

import (
	"fmt"
	"strings"
)

// Provider identifies an external data provider.
type Provider string

const (
	// ProviderGoogle is Google (Gmail).
	ProviderGoogle Provider = "google"
	// ProviderGitHub is GitHub.
	ProviderGitHub Provider = "github"
)

// Providers returns all supported providers in display order.
func Providers() []Provider {
	return []Provider{ProviderGoogle, ProviderGitHub}
}

// ParseProvider converts a user-supplied name into a Provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
	}
	return p, nil
}

// IsValid reports whether p is a supported provider.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderGoogle, ProviderGitHub:
		return true
	default:
		return false
	}
}

// String returns the provider name.
func (p Provider) String() string {
	return string(p)
}
