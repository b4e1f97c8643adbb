package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Client returns an HTTP client that sends a bearer token obtained with the
// client credentials grant. The token is fetched lazily and refreshed when
// it expires. base carries both token and API requests; it is returned
// unchanged when authentication is disabled.
func Client(ctx context.Context, c Conf, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	if !c.Enabled() {
		return base
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	cl := c.oauth2().Client(ctx)
	cl.Timeout = base.Timeout
	return cl
}

// Token fetches a fresh access token.
func Token(ctx context.Context, c Conf) (string, error) {
	tok, err := c.oauth2().Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return tok.AccessToken, nil
}
