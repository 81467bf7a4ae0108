package application

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by the token source when no token is stored.
var ErrNoToken = errors.New("no authentication token stored")

type storeTokenSource struct {
	ctx   context.Context
	store *TokenStore
}

// TokenSource adapts the store to oauth2.TokenSource. Each call reads the
// store, so a token set or cleared later is picked up by the next request.
func TokenSource(ctx context.Context, store *TokenStore) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: store}
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	token, ok := s.store.Token(s.ctx)
	if !ok {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
