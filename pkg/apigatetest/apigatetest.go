// Package apigatetest helps services that sit behind apigate, or call it
// through pkg/client, write tests without a running server.
package apigatetest

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/apigate/pkg/client"
	"git.sr.ht/~jakintosh/apigate/pkg/tokens"
)

// Keys holds an HMAC signing key and the issuer it signs for.
type Keys struct {
	SigningKey   []byte
	IssuerDomain string
}

// Session is a minted API token and its expiry.
type Session struct {
	AppID       string
	AccessToken string
	ExpiresAt   time.Time
}

// NewKeys generates a random 32-byte signing key for testing.
func NewKeys(issuerDomain string) (*Keys, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return &Keys{SigningKey: key, IssuerDomain: issuerDomain}, nil
}

// NewSession mints an API token for appID. A server configured with the
// same key and issuer accepts it as long as appID names an active client
// application in its store.
func NewSession(keys *Keys, appID string, lifetime time.Duration) (*Session, error) {
	issuer, _ := tokens.InitServer(keys.SigningKey, keys.IssuerDomain)
	token, err := issuer.IssueToken(tokens.KindAPI, appID, appID, lifetime)
	if err != nil {
		return nil, err
	}
	return &Session{
		AppID:       appID,
		AccessToken: token.Encoded(),
		ExpiresAt:   token.Expiration(),
	}, nil
}

// AddBearer sets the session token on r.
func AddBearer(r *http.Request, sess *Session) {
	r.Header.Set("Authorization", "Bearer "+sess.AccessToken)
}

// Validator returns a validator for tokens minted with keys.
func Validator(keys *Keys) tokens.Validator {
	_, validator := tokens.InitServer(keys.SigningKey, keys.IssuerDomain)
	return validator
}

// StaticTokenSource always hands out the same token, or Err when set.
type StaticTokenSource struct {
	AccessToken string
	Err         error
}

func (s StaticTokenSource) Token(context.Context) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.AccessToken, nil
}

var _ client.TokenSource = StaticTokenSource{}
