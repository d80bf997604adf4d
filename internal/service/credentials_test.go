package service_test

import (
	"context"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
	"git.sr.ht/~jakintosh/apigate/internal/testutil"
	"git.sr.ht/~jakintosh/apigate/pkg/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueToken_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)

	token, err := env.Service.IssueToken(context.Background(), "svc-a", "s3cr3t", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "svc-a", token.Subject())
	assert.Equal(t, "svc-a", token.SubjectName())
	assert.Equal(t, tokens.KindAPI, token.Kind())
	assert.Equal(t, time.Hour, token.Lifetime())
	assert.True(t, token.IssuedAt().Equal(env.Clock.Now()))
	assert.NotEmpty(t, token.Encoded())
}

func TestIssueToken_Lifetimes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		requested time.Duration
		want      time.Duration
	}{
		{"zero selects default", 0, service.DefaultTokenLifetime},
		{"explicit lifetime kept", 90 * time.Second, 90 * time.Second},
		{"one second", time.Second, time.Second},
		{"at the cap", service.MaxTokenLifetime, service.MaxTokenLifetime},
		{"above the cap is clamped", 48 * time.Hour, service.MaxTokenLifetime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := testutil.SetupTestEnv(t)
			env.SeedClientApp(t, "svc-a", "s3cr3t", true)

			token, err := env.Service.IssueToken(context.Background(), "svc-a", "s3cr3t", tc.requested)
			require.NoError(t, err)
			assert.Equal(t, tc.want, token.Lifetime())
		})
	}
}

func TestIssueToken_NegativeLifetime(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)

	_, err := env.Service.IssueToken(context.Background(), "svc-a", "s3cr3t", -time.Second)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestIssueToken_InvalidCredentials(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)
	env.SeedClientApp(t, "svc-off", "s3cr3t", false)

	cases := []struct {
		name   string
		appID  string
		secret string
	}{
		{"wrong secret", "svc-a", "nope"},
		{"unknown app", "ghost", "whatever"},
		{"inactive app", "svc-off", "s3cr3t"},
		{"empty secret", "svc-a", ""},
		{"empty app id", "", "s3cr3t"},
		{"secret of another app case", "SVC-A", "s3cr3t"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := env.Service.IssueToken(context.Background(), tc.appID, tc.secret, time.Hour)

			// every failure is the same error and never yields a token
			assert.Nil(t, token)
			assert.Equal(t, service.ErrInvalidCredentials, err)
		})
	}
}

func TestIssueToken_GeneratedCredentials(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	creds := env.CreateTestClientApp(t, "Billing Service")

	// credentials returned at creation are accepted
	token, err := env.Service.IssueToken(context.Background(), creds.App.AppID, creds.Secret, 0)
	require.NoError(t, err)
	assert.Equal(t, creds.App.AppID, token.Subject())
	assert.Equal(t, "Billing Service", token.SubjectName())
}
