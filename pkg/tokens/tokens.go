package tokens

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type validateError struct {
	context string
	err     error
}

func (t *validateError) Context() string {
	return t.context
}
func (t *validateError) Error() string {
	return fmt.Sprintf("%v", t.err)
}
func (t *validateError) Unwrap() error {
	return t.err
}

var (
	errTokenMalformed      = errors.New("token malformed")
	errTokenUndecodable    = errors.New("token undecodable")
	errTokenBadSignature   = errors.New("token bad signature")
	errTokenInvalidIssuer  = errors.New("token invalid issuer")
	errTokenExpired        = errors.New("token expired")
	errTokenNotIssued      = errors.New("token not issued yet")
	errTokenWrongKind      = errors.New("token wrong kind")
	errTokenMissingSubject = errors.New("token missing subject")
)

func ErrTokenMalformed() error      { return errTokenMalformed }
func ErrTokenUndecodable() error    { return errTokenUndecodable }
func ErrTokenBadSignature() error   { return errTokenBadSignature }
func ErrTokenInvalidIssuer() error  { return errTokenInvalidIssuer }
func ErrTokenExpired() error        { return errTokenExpired }
func ErrTokenNotIssued() error      { return errTokenNotIssued }
func ErrTokenWrongKind() error      { return errTokenWrongKind }
func ErrTokenMissingSubject() error { return errTokenMissingSubject }

// Kind discriminates the purpose a token was minted for. A verifier only
// accepts the kind it expects, so tokens signed with the same key can never
// be replayed across purposes.
type Kind string

const (
	// KindAPI is carried by tokens issued to client applications.
	KindAPI Kind = "api_token"
	// KindSession is carried by browser login tokens.
	KindSession Kind = "session"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAPI, KindSession:
		return true
	default:
		return false
	}
}

type Issuer interface {
	IssueToken(Kind, string, string, time.Duration) (*Token, error)
}

type Validator interface {
	Now() time.Time
	ValidateDomain(string) bool
	ParseClaims(string, *TokenClaims) error
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func InitServer(
	signingKey []byte,
	issuerDomain string,
	opts ...Option,
) (
	Issuer,
	Validator,
) {
	server := &Server{
		signingKey:   signingKey,
		issuerDomain: issuerDomain,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(server)
	}
	return server, server
}

func validateStructure(tokenStr string) error {
	if tokenStr == "" {
		return fmt.Errorf("empty token")
	}
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return fmt.Errorf("JWT expected three parts, found %d", len(parts))
	}
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("JWT part %d is empty", i)
		}
	}
	return nil
}

// classifyParseError folds the jwt library's error tree onto this package's
// sentinels.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errTokenExpired
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return errTokenNotIssued
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return errTokenBadSignature
	default:
		return errTokenUndecodable
	}
}

func decodeToken(
	tokenStr string,
	validator Validator,
	expected Kind,
) (*TokenClaims, *validateError) {
	if err := validateStructure(tokenStr); err != nil {
		return nil, &validateError{
			context: fmt.Sprintf("token malformed: %v", err),
			err:     errTokenMalformed,
		}
	}

	claims := &TokenClaims{}
	if err := validator.ParseClaims(tokenStr, claims); err != nil {
		return nil, &validateError{
			context: fmt.Sprintf("token rejected: %v", err),
			err:     classifyParseError(err),
		}
	}

	if err := claims.validate(validator, expected); err != nil {
		return nil, &validateError{
			context: fmt.Sprintf("token claims invalid: %v", err),
			err:     err,
		}
	}

	return claims, nil
}
