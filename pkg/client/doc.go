// Package client calls an apigate server on behalf of a client application.
//
// A Client exchanges the application's app_id and app_secret for a bearer
// token at the server's token endpoint, keeps that token until shortly
// before it expires, and attaches it to outgoing requests.
//
// # Quick Start
//
//	import "git.sr.ht/~jakintosh/apigate/pkg/client"
//
//	c := client.New(
//	    "https://api.example.com",
//	    os.Getenv("APP_ID"),
//	    os.Getenv("APP_SECRET"),
//	    client.WithLifetime(15*time.Minute),
//	)
//
//	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
//	    "https://api.example.com/api/v1/items", nil)
//	res, err := c.Do(req)
//
// # Tokens
//
// Token returns the cached token, or fetches a new one when none is cached or
// the cached one expires within [RefreshMargin]. FetchToken always asks the
// server and never touches the cache. A 401 from Do drops the cached token.
//
// # Error Handling
//
//	_, err := c.Token(ctx)
//	var apiErr *client.APIError
//	switch {
//	case errors.As(err, &apiErr):
//	    // the server refused; apiErr.Detail is its message
//	case errors.Is(err, client.ErrTokenRequest):
//	    // the server could not be reached
//	case errors.Is(err, client.ErrTokenResponse):
//	    // the reply was not a token
//	}
//
// # Testing
//
// Depend on [TokenSource] or [Doer] rather than *Client so tests can supply
// their own implementation.
package client
