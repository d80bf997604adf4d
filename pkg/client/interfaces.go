package client

import (
	"context"
	"net/http"
)

// TokenSource hands out bearer tokens.
// Consuming projects should depend on this interface rather than *Client
// to enable testing with mock implementations.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Doer sends authorized requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AuthClient exposes both token access and authorized requests.
type AuthClient interface {
	TokenSource
	Doer
}

// Compile-time check that *Client implements AuthClient.
var _ TokenSource = (*Client)(nil)
var _ Doer = (*Client)(nil)
var _ AuthClient = (*Client)(nil)
