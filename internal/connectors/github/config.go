package github

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

// DefaultPageSize is the REST page size. GitHub caps it at 100.
const DefaultPageSize = 100

// Config holds GitHub adapter configuration.
type Config struct {
	// BaseURL overrides the REST API root (GitHub Enterprise, tests).
	BaseURL string
	// PageSize is the number of repositories per page.
	PageSize int
	// IncludeArchived keeps archived repositories.
	IncludeArchived bool
	// IncludeForks keeps forked repositories.
	IncludeForks bool
	// Transport is the base HTTP transport.
	Transport http.RoundTripper
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:        DefaultPageSize,
		IncludeArchived: true,
		IncludeForks:    true,
	}
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 || c.PageSize > DefaultPageSize {
		c.PageSize = DefaultPageSize
	}
	return c
}

// baseURL parses BaseURL with the trailing slash go-github requires.
func (c Config) baseURL() (*url.URL, error) {
	if c.BaseURL == "" {
		return nil, nil
	}
	raw := c.BaseURL
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: api base url %q: %w", domain.ErrInvalidInput, c.BaseURL, err)
	}
	return u, nil
}
