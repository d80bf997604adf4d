package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Server implements both Issuer and Validator interfaces for the gate.
// It holds the symmetric HS256 key used to sign and verify every token kind.
// Create a Server instance using InitServer.
type Server struct {
	signingKey   []byte
	issuerDomain string
	now          func() time.Time
}

//
// Issuer interface

func (server *Server) IssueToken(
	kind Kind,
	subject string,
	subjectName string,
	lifetime time.Duration,
) (*Token, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}

	now := server.now().Truncate(time.Second)
	token := &Token{
		id:          uuid.NewString(),
		issuer:      server.issuerDomain,
		kind:        kind,
		subject:     subject,
		subjectName: subjectName,
		issuedAt:    now,
		expiration:  now.Add(lifetime),
	}

	encoded, err := jwt.
		NewWithClaims(jwt.SigningMethodHS256, token.intoClaims()).
		SignedString(server.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s token: %v", kind, err)
	}
	token.encoded = encoded

	return token, nil
}

//
// Validator interface

func (server *Server) Now() time.Time {
	return server.now()
}

func (server *Server) ValidateDomain(issuerDomain string) bool {
	return issuerDomain == server.issuerDomain
}

func (server *Server) ParseClaims(
	encToken string,
	claims *TokenClaims,
) error {
	_, err := jwt.ParseWithClaims(
		encToken,
		claims,
		func(t *jwt.Token) (any, error) {
			return server.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(server.now),
	)
	return err
}
