// Package service implements the business logic layer for the apigate server.
// It handles client credential exchange, bearer token verification, client
// application administration, operator accounts, the user directory and the
// item catalog.
package service

import (
	"errors"
	"time"

	"git.sr.ht/~jakintosh/apigate/pkg/tokens"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidFormat      = errors.New("invalid token format")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrInvalidPayload     = errors.New("invalid token payload")
	ErrClientUnavailable  = errors.New("client unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal error")
)

const (
	DefaultTokenLifetime = time.Hour
	MaxTokenLifetime     = 24 * time.Hour
)

// SecretMode controls bcrypt cost for secret and password hashing.
// Use SecretModeProduction for real deployments and SecretModeTesting only in tests.
type SecretMode int

const (
	// SecretModeProduction uses bcrypt.DefaultCost (10).
	SecretModeProduction SecretMode = iota
	// SecretModeTesting uses bcrypt.MinCost (4) for fast test execution.
	// WARNING: This mode will panic if used outside of go test.
	SecretModeTesting
)

// Cost returns the bcrypt cost for this mode.
// Panics if SecretModeTesting is used outside of a test binary.
func (m SecretMode) Cost() int {
	switch m {
	case SecretModeTesting:
		if !runningTests() {
			panic("service: SecretModeTesting used outside of test environment")
		}
		return bcrypt.MinCost
	default:
		return bcrypt.DefaultCost
	}
}

// Options tunes a Service. Zero values fall back to the defaults.
type Options struct {
	SecretMode      SecretMode
	DefaultLifetime time.Duration
	MaxLifetime     time.Duration
	Logger          *zap.Logger
	Now             func() time.Time
}

// Service coordinates credential exchange, token verification and the
// administration of client applications. It depends on storage interfaces
// and delegates to them for persistence.
type Service struct {
	clientApps      ClientAppStore
	operators       OperatorStore
	items           ItemStore
	users           UserStore
	tokenIssuer     tokens.Issuer
	tokenValidator  tokens.Validator
	secretMode      SecretMode
	defaultLifetime time.Duration
	maxLifetime     time.Duration
	dummyHash       []byte
	log             *zap.Logger
	now             func() time.Time
}

func New(
	clientApps ClientAppStore,
	operators OperatorStore,
	items ItemStore,
	users UserStore,
	issuer tokens.Issuer,
	validator tokens.Validator,
	opts Options,
) (*Service, error) {
	s := &Service{
		clientApps:      clientApps,
		operators:       operators,
		items:           items,
		users:           users,
		tokenIssuer:     issuer,
		tokenValidator:  validator,
		secretMode:      opts.SecretMode,
		defaultLifetime: opts.DefaultLifetime,
		maxLifetime:     opts.MaxLifetime,
		log:             opts.Logger,
		now:             opts.Now,
	}
	if s.defaultLifetime <= 0 {
		s.defaultLifetime = DefaultTokenLifetime
	}
	if s.maxLifetime <= 0 {
		s.maxLifetime = MaxTokenLifetime
	}
	if s.defaultLifetime > s.maxLifetime {
		s.defaultLifetime = s.maxLifetime
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}

	// compared against when the app is unknown, so a miss costs the same
	// as a wrong secret
	dummy, err := generateSecret()
	if err != nil {
		return nil, err
	}
	s.dummyHash, err = bcrypt.GenerateFromPassword([]byte(dummy), s.secretMode.Cost())
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) DefaultLifetime() time.Duration {
	return s.defaultLifetime
}

func (s *Service) MaxLifetime() time.Duration {
	return s.maxLifetime
}
