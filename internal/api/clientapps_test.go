package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"git.sr.ht/~jakintosh/apigate/internal/api"
	"git.sr.ht/~jakintosh/apigate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminAppPath(id int64) string {
	return fmt.Sprintf("/admin/client-apps/%d", id)
}

func createApp(t *testing.T, env *testutil.TestEnv, body string) api.ClientAppSecretResponse {
	t.Helper()
	var created api.ClientAppSecretResponse
	result := testutil.PostJSON(env.Router, "/admin/client-apps", body, &created, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusCreated, result)
	return created
}

func TestAdmin_RequiresOperator(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithOperator(t)

	// no credentials
	result := testutil.Get(env.Router, "/admin/client-apps", nil)
	testutil.ExpectDetail(t, http.StatusUnauthorized, "Operator credentials required", result)
	assert.Contains(t, result.Headers.Get("WWW-Authenticate"), "Basic")

	// wrong password
	result = testutil.Get(env.Router, "/admin/client-apps", nil, testutil.BasicAuth(testutil.TestOperator, "wrong"))
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)

	// a client bearer token is not operator access
	env.SeedClientApp(t, "svc-a", "s3cr3t", true)
	token := env.IssueTestToken(t, "svc-a", "s3cr3t", 0)
	result = testutil.Get(env.Router, "/admin/client-apps", nil, testutil.Bearer(token.Encoded()))
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
}

func TestAdmin_CreateThenExchange(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithOperator(t)

	created := createApp(t, env, `{"name": "Billing Service", "description": "invoices"}`)
	assert.Len(t, created.AppID, 16)
	assert.NotEmpty(t, created.AppSecret)
	assert.True(t, created.IsActive)
	assert.Equal(t, testutil.TestOperator, created.CreatedBy)

	// the minted credentials work at the token endpoint
	var token api.TokenResponse
	result := testutil.PostForm(env.Router, "/api/v1/auth/token", tokenForm(created.AppID, created.AppSecret, ""), &token)
	testutil.ExpectStatus(t, http.StatusOK, result)

	// the secret is never shown again
	result = testutil.Get(env.Router, adminAppPath(created.ID), nil, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusOK, result)
	assert.NotContains(t, string(result.Body), created.AppSecret)
	assert.NotContains(t, string(result.Body), "app_secret")
}

func TestAdmin_CreateValidation(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithOperator(t)

	result := testutil.PostJSON(env.Router, "/admin/client-apps", `{"name": "ab"}`, nil, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusUnprocessableEntity, result)

	result = testutil.PostJSON(env.Router, "/admin/client-apps", `not-json`, nil, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
}

func TestAdmin_ListAndGet(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithOperator(t)
	first := createApp(t, env, `{"name": "first app"}`)
	createApp(t, env, `{"name": "second app", "is_active": false}`)

	var list api.ClientAppListResponse
	result := testutil.Get(env.Router, "/admin/client-apps", &list, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusOK, result)
	require.Len(t, list.ClientApps, 2)
	assert.True(t, list.ClientApps[0].IsActive)
	assert.False(t, list.ClientApps[1].IsActive)

	result = testutil.Get(env.Router, "/admin/client-apps?offset=1&limit=5", &list, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusOK, result)
	require.Len(t, list.ClientApps, 1)
	assert.Equal(t, "second app", list.ClientApps[0].Name)

	result = testutil.Get(env.Router, "/admin/client-apps?limit=-1", nil, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusUnprocessableEntity, result)

	var app api.ClientAppResponse
	result = testutil.Get(env.Router, adminAppPath(first.ID), &app, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusOK, result)
	assert.Equal(t, first.AppID, app.AppID)

	result = testutil.Get(env.Router, adminAppPath(999), nil, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusNotFound, result)
}

func TestAdmin_Update(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithOperator(t)
	created := createApp(t, env, `{"name": "original"}`)

	var app api.ClientAppResponse
	result := testutil.PatchJSON(env.Router, adminAppPath(created.ID),
		`{"name": "renamed", "is_active": false}`, &app, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusOK, result)
	assert.Equal(t, "renamed", app.Name)
	assert.False(t, app.IsActive)

	// the disabled app can no longer exchange credentials
	result = testutil.PostForm(env.Router, "/api/v1/auth/token", tokenForm(created.AppID, created.AppSecret, ""), nil)
	testutil.ExpectDetail(t, http.StatusUnauthorized, "Invalid client credentials", result)
}

func TestAdmin_RegenerateSecret(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithOperator(t)
	created := createApp(t, env, `{"name": "rotating"}`)

	var regenerated api.ClientAppSecretResponse
	result := testutil.Post(env.Router, adminAppPath(created.ID)+"/regenerate-secret", "", &regenerated, testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusOK, result)
	assert.NotEqual(t, created.AppSecret, regenerated.AppSecret)

	result = testutil.PostForm(env.Router, "/api/v1/auth/token", tokenForm(created.AppID, created.AppSecret, ""), nil)
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
	result = testutil.PostForm(env.Router, "/api/v1/auth/token", tokenForm(created.AppID, regenerated.AppSecret, ""), nil)
	testutil.ExpectStatus(t, http.StatusOK, result)
}

func TestAdmin_Delete(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithOperator(t)
	created := createApp(t, env, `{"name": "doomed"}`)
	token := env.IssueTestToken(t, created.AppID, created.AppSecret, 0)

	result := testutil.Delete(env.Router, adminAppPath(created.ID), testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusNoContent, result)

	// tokens of a deleted app are refused
	result = testutil.Get(env.Router, "/api/v1/auth/me", nil, testutil.Bearer(token.Encoded()))
	testutil.ExpectDetail(t, http.StatusUnauthorized, "Client application not found or disabled", result)

	result = testutil.Delete(env.Router, adminAppPath(created.ID), testutil.OperatorAuth())
	testutil.ExpectStatus(t, http.StatusNotFound, result)
}
