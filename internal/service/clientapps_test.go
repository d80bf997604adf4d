package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
	"git.sr.ht/~jakintosh/apigate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateClientApp(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	creds, err := env.Service.CreateClientApp(context.Background(), "alice", "  Billing Service  ", "invoices", true)
	require.NoError(t, err)

	assert.Len(t, creds.App.AppID, 16)
	assert.NotEmpty(t, creds.Secret)
	assert.Equal(t, "Billing Service", creds.App.Name)
	assert.Equal(t, "alice", creds.App.CreatedBy)
	assert.True(t, creds.App.Active)
	assert.NotZero(t, creds.App.ID)

	// only the hash is persisted
	stored, err := env.Service.GetClientApp(context.Background(), creds.App.ID)
	require.NoError(t, err)
	assert.NotEqual(t, creds.Secret, string(stored.SecretHash))
	assert.Equal(t, creds.App.AppID, stored.AppID)
}

func TestCreateClientApp_UniqueCredentials(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	a := env.CreateTestClientApp(t, "first app")
	b := env.CreateTestClientApp(t, "second app")

	assert.NotEqual(t, a.App.AppID, b.App.AppID)
	assert.NotEqual(t, a.Secret, b.Secret)
}

func TestCreateClientApp_Validation(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	cases := []struct {
		name        string
		appName     string
		description string
	}{
		{"name too short", "ab", ""},
		{"blank name", "    ", ""},
		{"name too long", strings.Repeat("n", 101), ""},
		{"description too long", "valid name", strings.Repeat("d", 501)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Service.CreateClientApp(context.Background(), "alice", tc.appName, tc.description, true)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
		})
	}
}

func TestGetClientApp_NotFound(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	_, err := env.Service.GetClientApp(context.Background(), 404)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestListClientApps(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	for _, name := range []string{"app one", "app two", "app three"} {
		env.CreateTestClientApp(t, name)
	}

	apps, err := env.Service.ListClientApps(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, apps, 3)

	apps, err = env.Service.ListClientApps(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "app two", apps[0].Name)

	_, err = env.Service.ListClientApps(context.Background(), -1, 10)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestUpdateClientApp(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	creds := env.CreateTestClientApp(t, "original")
	env.Clock.Advance(time.Minute)

	name := "renamed"
	description := "new description"
	app, err := env.Service.UpdateClientApp(context.Background(), creds.App.ID, service.ClientAppUpdate{
		Name:        &name,
		Description: &description,
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed", app.Name)
	assert.Equal(t, "new description", app.Description)
	assert.True(t, app.Active)
	assert.True(t, app.UpdatedAt.After(app.CreatedAt))

	// invalid updates are rejected
	short := "x"
	_, err = env.Service.UpdateClientApp(context.Background(), creds.App.ID, service.ClientAppUpdate{Name: &short})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = env.Service.UpdateClientApp(context.Background(), 999, service.ClientAppUpdate{Name: &name})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestToggleClientApp(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	creds := env.CreateTestClientApp(t, "toggled")

	app, err := env.Service.ToggleClientApp(context.Background(), creds.App.ID)
	require.NoError(t, err)
	assert.False(t, app.Active)

	// an inactive app cannot exchange credentials
	_, err = env.Service.IssueToken(context.Background(), creds.App.AppID, creds.Secret, 0)
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	app, err = env.Service.ToggleClientApp(context.Background(), creds.App.ID)
	require.NoError(t, err)
	assert.True(t, app.Active)

	_, err = env.Service.IssueToken(context.Background(), creds.App.AppID, creds.Secret, 0)
	assert.NoError(t, err)
}

func TestRegenerateSecret(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	creds := env.CreateTestClientApp(t, "rotating")

	regenerated, err := env.Service.RegenerateSecret(context.Background(), creds.App.ID)
	require.NoError(t, err)
	assert.NotEqual(t, creds.Secret, regenerated.Secret)
	assert.Equal(t, creds.App.AppID, regenerated.App.AppID)

	_, err = env.Service.IssueToken(context.Background(), creds.App.AppID, creds.Secret, 0)
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = env.Service.IssueToken(context.Background(), creds.App.AppID, regenerated.Secret, 0)
	assert.NoError(t, err)

	_, err = env.Service.RegenerateSecret(context.Background(), 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeleteClientApp(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	creds := env.CreateTestClientApp(t, "doomed")

	require.NoError(t, env.Service.DeleteClientApp(context.Background(), creds.App.ID))

	err := env.Service.DeleteClientApp(context.Background(), creds.App.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
