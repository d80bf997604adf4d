package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	tokenPath = "/api/v1/auth/token"
	mePath    = "/api/v1/auth/me"

	// RefreshMargin is how long before expiry a cached token is replaced.
	RefreshMargin = 30 * time.Second
)

var (
	ErrTokenRequest  = errors.New("failed to fetch token")
	ErrTokenResponse = errors.New("invalid token response")
)

// APIError is a non-2xx response from the server, carrying its detail
// message.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server responded %d", e.Status)
	}
	return fmt.Sprintf("server responded %d: %s", e.Status, e.Detail)
}

// Token is a bearer token issued by the server.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	ExpiresAt   time.Time
}

// Identity is the authenticated client as reported by the server.
type Identity struct {
	AppID       string    `json:"app_id"`
	AppName     string    `json:"app_name"`
	Description string    `json:"description"`
	TokenID     string    `json:"token_id"`
	TokenType   string    `json:"token_type"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   string `json:"expires_at"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLifetime requests tokens with the given lifetime instead of the
// server default.
func WithLifetime(lifetime time.Duration) Option {
	return func(c *Client) { c.lifetime = lifetime }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.log = logger }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client exchanges app credentials for bearer tokens and attaches them to
// outgoing requests. A token is reused until RefreshMargin before it
// expires. Safe for concurrent use.
type Client struct {
	baseURL   string
	appID     string
	appSecret string
	lifetime  time.Duration
	http      *http.Client
	log       *zap.Logger
	now       func() time.Time

	mu     sync.Mutex
	cached *Token
}

func New(
	baseURL string,
	appID string,
	appSecret string,
	opts ...Option,
) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appID:     appID,
		appSecret: appSecret,
		http:      http.DefaultClient,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

/*
FetchToken posts the client credentials to the token endpoint and returns
the issued token without caching it.

Errors are [ErrTokenRequest] when the server could not be reached,
[ErrTokenResponse] when the reply could not be decoded, or an [*APIError]
when the server refused the credentials.
*/
func (c *Client) FetchToken(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("app_id", c.appID)
	form.Set("app_secret", c.appSecret)
	if c.lifetime > 0 {
		form.Set("expires_in", strconv.FormatInt(int64(c.lifetime/time.Second), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Debug("requesting token", zap.String("url", req.URL.String()), zap.String("app_id", c.appID))
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Error("token request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, decodeAPIError(res)
	}

	body := new(tokenResponse)
	if err := json.NewDecoder(res.Body).Decode(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenResponse, err)
	}
	if body.AccessToken == "" || body.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: missing access_token or expires_in", ErrTokenResponse)
	}

	token := &Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		ExpiresIn:   time.Duration(body.ExpiresIn) * time.Second,
	}
	if expiresAt, err := time.Parse(time.RFC3339, body.ExpiresAt); err == nil {
		token.ExpiresAt = expiresAt
	} else {
		token.ExpiresAt = c.now().Add(token.ExpiresIn)
	}
	return token, nil
}

// Token returns a valid access token, fetching a new one when none is cached
// or the cached one is about to expire.
func (c *Client) Token(ctx context.Context) (string, error) {
	token, err := c.CurrentToken(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// CurrentToken is Token with the expiry details.
func (c *Client) CurrentToken(ctx context.Context) (*Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.now().Add(RefreshMargin).Before(c.cached.ExpiresAt) {
		return c.cached, nil
	}

	token, err := c.FetchToken(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = token
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

// Do sends req with a bearer token attached. A 401 response drops the
// cached token; the response is still returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	token, err := c.Token(req.Context())
	if err != nil {
		return nil, err
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusUnauthorized {
		c.log.Debug("token rejected, dropping cache")
		c.Invalidate()
	}
	return res, nil
}

// Me asks the server who the current token belongs to.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+mePath, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, decodeAPIError(res)
	}
	identity := new(Identity)
	if err := json.NewDecoder(res.Body).Decode(identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}
	return identity, nil
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{Status: res.StatusCode}
	body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err == nil {
		var detail errorResponse
		if json.Unmarshal(body, &detail) == nil {
			apiErr.Detail = detail.Detail
		}
	}
	return apiErr
}
