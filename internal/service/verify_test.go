package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
	"git.sr.ht/~jakintosh/apigate/internal/testutil"
	"git.sr.ht/~jakintosh/apigate/pkg/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyToken_RoundTrip(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)
	token := env.IssueTestToken(t, "svc-a", "s3cr3t", time.Hour)

	client, err := env.Service.VerifyToken(context.Background(), token.Encoded())
	require.NoError(t, err)

	assert.Equal(t, "svc-a", client.AppID)
	assert.Equal(t, "svc-a", client.AppName)
	assert.Equal(t, "svc-a", client.DisplayName)
	assert.Equal(t, token.ID(), client.Token.ID())
	assert.True(t, client.App.Active)
}

func TestVerifyToken_Idempotent(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)
	token := env.IssueTestToken(t, "svc-a", "s3cr3t", time.Hour)

	first, err := env.Service.VerifyToken(context.Background(), token.Encoded())
	require.NoError(t, err)
	second, err := env.Service.VerifyToken(context.Background(), token.Encoded())
	require.NoError(t, err)

	assert.Equal(t, first.AppID, second.AppID)
	assert.Equal(t, first.Token.ID(), second.Token.ID())
}

func TestVerifyToken_Expired(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)
	token := env.IssueTestToken(t, "svc-a", "s3cr3t", time.Second)

	env.Clock.Advance(2 * time.Second)

	_, err := env.Service.VerifyToken(context.Background(), token.Encoded())
	assert.ErrorIs(t, err, service.ErrInvalidToken)
	assert.ErrorIs(t, err, tokens.ErrTokenExpired())
}

func TestVerifyToken_DeactivatedApp(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	app := env.SeedClientApp(t, "svc-b", "s3cr3t", true)
	token := env.IssueTestToken(t, "svc-b", "s3cr3t", time.Hour)

	active := false
	_, err := env.Service.UpdateClientApp(context.Background(), app.ID, service.ClientAppUpdate{Active: &active})
	require.NoError(t, err)

	// the unexpired token stops working right away
	_, err = env.Service.VerifyToken(context.Background(), token.Encoded())
	assert.ErrorIs(t, err, service.ErrClientUnavailable)
}

func TestVerifyToken_DeletedApp(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	app := env.SeedClientApp(t, "svc-a", "s3cr3t", true)
	token := env.IssueTestToken(t, "svc-a", "s3cr3t", time.Hour)

	require.NoError(t, env.Service.DeleteClientApp(context.Background(), app.ID))

	_, err := env.Service.VerifyToken(context.Background(), token.Encoded())
	assert.ErrorIs(t, err, service.ErrClientUnavailable)
}

func TestVerifyToken_RegeneratedSecretKeepsTokens(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	app := env.SeedClientApp(t, "svc-a", "s3cr3t", true)
	token := env.IssueTestToken(t, "svc-a", "s3cr3t", time.Hour)

	_, err := env.Service.RegenerateSecret(context.Background(), app.ID)
	require.NoError(t, err)

	// old secret no longer works, old token still does
	_, err = env.Service.IssueToken(context.Background(), "svc-a", "s3cr3t", time.Hour)
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = env.Service.VerifyToken(context.Background(), token.Encoded())
	assert.NoError(t, err)
}

func TestVerifyToken_LiveName(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	app := env.SeedClientApp(t, "svc-a", "s3cr3t", true)
	token := env.IssueTestToken(t, "svc-a", "s3cr3t", time.Hour)

	name := "Renamed Service"
	_, err := env.Service.UpdateClientApp(context.Background(), app.ID, service.ClientAppUpdate{Name: &name})
	require.NoError(t, err)

	// storage name wins, token keeps the name at issuance
	client, err := env.Service.VerifyToken(context.Background(), token.Encoded())
	require.NoError(t, err)
	assert.Equal(t, "Renamed Service", client.AppName)
	assert.Equal(t, "svc-a", client.DisplayName)
}

func TestVerifyToken_ForeignKey(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)

	foreign, _ := tokens.InitServer(
		[]byte("some-other-signing-key-0123456789abcdef"),
		testutil.TestIssuer,
		tokens.WithClock(env.Clock.Now),
	)
	token, err := foreign.IssueToken(tokens.KindAPI, "svc-a", "svc-a", time.Hour)
	require.NoError(t, err)

	_, err = env.Service.VerifyToken(context.Background(), token.Encoded())
	assert.ErrorIs(t, err, service.ErrInvalidToken)
	assert.ErrorIs(t, err, tokens.ErrTokenBadSignature())
}

func TestVerifyToken_WrongKind(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)

	token, err := env.TokenIssuer.IssueToken(tokens.KindSession, "svc-a", "svc-a", time.Hour)
	require.NoError(t, err)

	_, err = env.Service.VerifyToken(context.Background(), token.Encoded())
	assert.ErrorIs(t, err, service.ErrWrongTokenType)
}

func TestVerifyToken_MissingSubject(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	token, err := env.TokenIssuer.IssueToken(tokens.KindAPI, "", "", time.Hour)
	require.NoError(t, err)

	_, err = env.Service.VerifyToken(context.Background(), token.Encoded())
	assert.ErrorIs(t, err, service.ErrInvalidPayload)
}

func TestVerifyToken_Malformed(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	for _, encoded := range []string{"", "abc", "a.b", "a..c", "a.b.c.d"} {
		_, err := env.Service.VerifyToken(context.Background(), encoded)
		assert.ErrorIs(t, err, service.ErrInvalidFormat, "token %q", encoded)
	}

	// three segments that do not decode are a bad token, not a bad format
	_, err := env.Service.VerifyToken(context.Background(), "xxx.yyy.zzz")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestVerifyToken_ErrorsNeverEchoToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)
	token := env.IssueTestToken(t, "svc-a", "s3cr3t", time.Second)
	env.Clock.Advance(time.Minute)

	_, err := env.Service.VerifyToken(context.Background(), token.Encoded())
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), token.Encoded()))
}

type failingClientApps struct {
	service.ClientAppStore
}

func (failingClientApps) FindByAppIdentifier(context.Context, string) (*service.ClientApp, error) {
	return nil, errors.New("disk I/O error")
}

func TestVerifyToken_StoreFailure(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)
	token := env.IssueTestToken(t, "svc-a", "s3cr3t", time.Hour)

	svc, err := service.New(
		failingClientApps{env.DB.ClientAppStore()},
		env.DB.OperatorStore(),
		env.DB.ItemStore(),
		env.DB.UserStore(),
		env.TokenIssuer,
		env.TokenValidator,
		service.Options{SecretMode: service.SecretModeTesting, Now: env.Clock.Now},
	)
	require.NoError(t, err)

	// a storage failure is internal, not a statement about the client
	_, err = svc.VerifyToken(context.Background(), token.Encoded())
	assert.ErrorIs(t, err, service.ErrInternal)
	assert.NotErrorIs(t, err, service.ErrClientUnavailable)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc.def.ghi", "abc.def.ghi", true},
		{"BEARER  abc.def.ghi ", "abc.def.ghi", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc.def.ghi", "", false},
	}
	for _, tc := range cases {
		got, ok := service.BearerToken(tc.header)
		assert.Equal(t, tc.ok, ok, "header %q", tc.header)
		assert.Equal(t, tc.want, got, "header %q", tc.header)
	}
}
