package discord

import (
	"context"
	"strings"
)

// TokenProvider supplies the current bot credential. It is owned by the
// embedding application.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	token := strings.TrimSpace(strings.TrimPrefix(string(t), "Bot "))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
