package google

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/wkyt-app/wkyt/internal/connectors/retry"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// ServiceOptions configures API clients.
type ServiceOptions struct {
	// Endpoint overrides the API base URL (tests, proxies).
	Endpoint string
	// Transport is the base HTTP transport under the OAuth layer.
	Transport http.RoundTripper
}

// HTTPClient returns a client that authorises every request with the
// account's current token.
func HTTPClient(ctx context.Context, tokens driven.TokenSource, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: retry.NewTokenSource(ctx, tokens),
			Base:   base,
		},
	}
}

// NewGmailService creates a Gmail API service for one account.
func NewGmailService(ctx context.Context, tokens driven.TokenSource, opts ServiceOptions) (*gmail.Service, error) {
	clientOpts := []option.ClientOption{
		option.WithHTTPClient(HTTPClient(ctx, tokens, opts.Transport)),
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	return gmail.NewService(ctx, clientOpts...)
}
