// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/api"
	"git.sr.ht/~jakintosh/apigate/internal/database"
	"git.sr.ht/~jakintosh/apigate/internal/service"
	"git.sr.ht/~jakintosh/apigate/pkg/tokens"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	TestIssuer = "test.apigate.local"

	// TestOperator and TestOperatorPassword are registered by
	// SetupTestEnvWithOperator.
	TestOperator         = "alice"
	TestOperatorPassword = "correct-horse-battery"
)

// TestSigningKey is the HMAC key shared by every test environment.
var TestSigningKey = []byte("apigate-test-signing-key-0123456789abcdef")

// Clock is a manually advanced clock shared by the token server and the
// service of a test environment.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	DB             *database.SQLiteStore
	Service        *service.Service
	API            *api.API
	Router         http.Handler
	TokenIssuer    tokens.Issuer
	TokenValidator tokens.Validator
	Clock          *Clock
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()

	// create in-memory SQLite database
	db, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	clock := NewClock()

	// create token issuer/validator
	issuer, validator := tokens.InitServer(TestSigningKey, TestIssuer, tokens.WithClock(clock.Now))

	// create service
	svc, err := service.New(
		db.ClientAppStore(),
		db.OperatorStore(),
		db.ItemStore(),
		db.UserStore(),
		issuer,
		validator,
		service.Options{
			SecretMode: service.SecretModeTesting,
			Logger:     zap.NewNop(),
			Now:        clock.Now,
		},
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	return &TestEnv{
		DB:             db,
		Service:        svc,
		TokenIssuer:    issuer,
		TokenValidator: validator,
		Clock:          clock,
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the API router
func SetupTestEnvWithRouter(
	t *testing.T,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t)
	env.API = api.New(env.Service, api.Options{Logger: zap.NewNop()})
	env.Router = env.API.Router()
	return env
}

// SetupTestEnvWithOperator creates a routed TestEnv with TestOperator
// already registered.
func SetupTestEnvWithOperator(
	t *testing.T,
) *TestEnv {
	t.Helper()
	env := SetupTestEnvWithRouter(t)
	env.RegisterTestOperator(t, TestOperator, TestOperatorPassword)
	return env
}

// RegisterTestOperator creates an operator account in the database
func (env *TestEnv) RegisterTestOperator(
	t *testing.T,
	handle string,
	password string,
) {
	t.Helper()
	if err := env.Service.RegisterOperator(context.Background(), handle, password); err != nil {
		t.Fatalf("failed to register test operator: %v", err)
	}
}

// CreateTestClientApp registers an active client app through the service and
// returns its one-time credentials.
func (env *TestEnv) CreateTestClientApp(
	t *testing.T,
	name string,
) *service.IssuedCredentials {
	t.Helper()
	creds, err := env.Service.CreateClientApp(context.Background(), TestOperator, name, "", true)
	if err != nil {
		t.Fatalf("failed to create test client app: %v", err)
	}
	return creds
}

// SeedClientApp stores a client app with a caller-chosen identifier and
// secret, bypassing identifier generation.
func (env *TestEnv) SeedClientApp(
	t *testing.T,
	appID string,
	secret string,
	active bool,
) *service.ClientApp {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash test secret: %v", err)
	}
	now := env.Clock.Now()
	app := &service.ClientApp{
		AppID:      appID,
		SecretHash: hash,
		Name:       appID,
		Active:     active,
		CreatedBy:  TestOperator,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	app.ID, err = env.DB.InsertClientApp(context.Background(), app)
	if err != nil {
		t.Fatalf("failed to seed client app: %v", err)
	}
	return app
}

// IssueTestToken exchanges credentials for an API token through the service
func (env *TestEnv) IssueTestToken(
	t *testing.T,
	appID string,
	secret string,
	lifetime time.Duration,
) *tokens.Token {
	t.Helper()
	token, err := env.Service.IssueToken(context.Background(), appID, secret, lifetime)
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}
	return token
}
