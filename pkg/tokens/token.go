package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ==============================================

// TokenClaims is the JWT payload of an issued token. It sits between the JSON
// representation in the token and the Token Go struct.
type TokenClaims struct {
	AppID   string `json:"app_id"`
	AppName string `json:"app_name"`
	Kind    Kind   `json:"type"`
	jwt.RegisteredClaims
}

func (claims *TokenClaims) validate(validator Validator, expected Kind) error {
	now := validator.Now()

	if claims.IssuedAt == nil || claims.IssuedAt.After(now) {
		return ErrTokenNotIssued()
	}

	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return ErrTokenExpired()
	}

	if !validator.ValidateDomain(claims.Issuer) {
		return ErrTokenInvalidIssuer()
	}

	if claims.Kind != expected {
		return ErrTokenWrongKind()
	}

	if claims.AppID == "" {
		return ErrTokenMissingSubject()
	}

	return nil
}

// ==============================================

// Token is a stateless bearer credential. Nothing about it is stored on the
// server; everything is reconstructed from its own signed payload.
type Token struct {
	id          string
	issuer      string
	kind        Kind
	subject     string
	subjectName string
	issuedAt    time.Time
	expiration  time.Time
	encoded     string
}

func (t *Token) ID() string            { return t.id }
func (t *Token) Issuer() string        { return t.issuer }
func (t *Token) Kind() Kind            { return t.kind }
func (t *Token) Subject() string       { return t.subject }
func (t *Token) SubjectName() string   { return t.subjectName }
func (t *Token) IssuedAt() time.Time   { return t.issuedAt }
func (t *Token) Expiration() time.Time { return t.expiration }
func (t *Token) Encoded() string       { return t.encoded }

// Lifetime is the span between issuance and expiration.
func (t *Token) Lifetime() time.Duration {
	return t.expiration.Sub(t.issuedAt)
}

// Decode verifies encToken with validator and, when it is a valid token of
// the expected kind, populates t from its claims. The returned error wraps one
// of the package sentinels; its Context (when it is a *validateError) carries
// the log-only detail.
func (t *Token) Decode(encToken string, validator Validator, expected Kind) error {
	claims, err := decodeToken(encToken, validator, expected)
	if err != nil {
		return err
	}
	t.fromClaims(claims, encToken)
	return nil
}

// Context returns the log-only detail of a Decode error, or its message when
// err did not come from Decode.
func Context(err error) string {
	var verr *validateError
	if errors.As(err, &verr) {
		return verr.Context()
	}
	return err.Error()
}

func (t *Token) intoClaims() *TokenClaims {
	return &TokenClaims{
		AppID:   t.subject,
		AppName: t.subjectName,
		Kind:    t.kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        t.id,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(t.issuedAt),
			ExpiresAt: jwt.NewNumericDate(t.expiration),
		},
	}
}

func (t *Token) fromClaims(claims *TokenClaims, encToken string) {
	t.id = claims.ID
	t.issuer = claims.Issuer
	t.kind = claims.Kind
	t.subject = claims.AppID
	t.subjectName = claims.AppName
	t.issuedAt = claims.IssuedAt.Time
	t.expiration = claims.ExpiresAt.Time
	t.encoded = encToken
}
