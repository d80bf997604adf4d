package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APIGATE_SIGNING_KEY", "cli-test-signing-key-0123456789abcdef")
	t.Setenv("APIGATE_DB_PATH", filepath.Join(t.TempDir(), "apigate.db"))
	t.Setenv("APIGATE_LOG_LEVEL", "error")
	t.Setenv("APIGATE_LISTEN_ADDR", "127.0.0.1:0")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestApps_Lifecycle(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "apps", "create", "--name", "billing service")
	require.NoError(t, err)
	assert.Contains(t, out, "app_id:")
	assert.Contains(t, out, "app_secret:")

	out, err = run(t, "", "apps", "list", "--json")
	require.NoError(t, err)
	var apps []appRecord
	require.NoError(t, json.Unmarshal([]byte(out), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, "billing service", apps[0].Name)
	assert.True(t, apps[0].IsActive)
	assert.Equal(t, "cli", apps[0].CreatedBy)

	out, err = run(t, "", "apps", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "billing service")

	out, err = run(t, "", "apps", "disable", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")

	out, err = run(t, "", "apps", "list", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &apps))
	assert.False(t, apps[0].IsActive)

	out, err = run(t, "", "apps", "regenerate", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "app_secret:")

	_, err = run(t, "", "apps", "delete", "1")
	require.NoError(t, err)
	_, err = run(t, "", "apps", "delete", "1")
	assert.Error(t, err)

	_, err = run(t, "", "apps", "enable", "abc")
	assert.Error(t, err)
}

func TestApps_CreateValidation(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "", "apps", "create", "--name", "ab")
	assert.Error(t, err)
}

func TestOperatorCreate(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "long-enough-password\n", "operator", "create", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Operator bob created")

	// handles are unique
	_, err = run(t, "", "operator", "create", "bob", "--password", "another-password")
	assert.Error(t, err)

	// too short
	_, err = run(t, "short\n", "operator", "create", "carol")
	assert.Error(t, err)
}

func TestMissingSigningKey(t *testing.T) {
	setupEnv(t)
	t.Setenv("APIGATE_SIGNING_KEY", "")

	_, err := run(t, "", "apps", "list")
	assert.ErrorContains(t, err, "signing_key")
}

func TestServeAndToken(t *testing.T) {
	setupEnv(t)

	rt, err := (&rootOptions{}).open()
	require.NoError(t, err)
	defer rt.Close()

	creds, err := rt.service.CreateClientApp(context.Background(), "cli", "reporting", "", true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- serve(ctx, rt, ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	out, err := run(t, "", "token",
		"--url", "http://"+addr,
		"--app-id", creds.App.AppID,
		"--app-secret", creds.Secret,
		"--lifetime", "10m",
		"--verify",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "verified as "+creds.App.AppID)

	jsonStart := strings.Index(out, "{")
	require.GreaterOrEqual(t, jsonStart, 0)
	var token tokenOutput
	require.NoError(t, json.Unmarshal([]byte(out[jsonStart:]), &token))
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, int64(600), token.ExpiresIn)

	_, err = run(t, "", "token",
		"--url", "http://"+addr,
		"--app-id", creds.App.AppID,
		"--app-secret", "wrong",
	)
	assert.ErrorContains(t, err, "Invalid client credentials")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
