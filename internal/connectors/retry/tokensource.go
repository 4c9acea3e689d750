package retry

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// TokenSourceAdapter adapts driven.TokenSource to oauth2.TokenSource so API
// clients built on oauth2.Transport pick up refreshed tokens.
type TokenSourceAdapter struct {
	tokens driven.TokenSource
	ctx    context.Context
}

// NewTokenSource creates an oauth2.TokenSource bound to ctx.
func NewTokenSource(ctx context.Context, tokens driven.TokenSource) oauth2.TokenSource {
	return &TokenSourceAdapter{tokens: tokens, ctx: ctx}
}

// Token implements oauth2.TokenSource.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.tokens.Token(t.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}, nil
}
