package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc, _, _ := newTestService(t)
	h := NewHandler(nil, DefaultConfig(), svc)

	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, envelope) {
	t.Helper()

	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestHandlerRegister(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, env := postJSON(t, srv.URL+"/api/auth/register", `{"identifier":"alice","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "success", env.Status)

	var pair tokenPairResponse
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.EqualValues(t, 120, pair.ExpiresIn)
}

func TestHandlerRegisterValidation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, env := postJSON(t, srv.URL+"/api/auth/register", `{"identifier":"ab","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "fail", env.Status)

	var problems map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &problems))
	assert.Contains(t, problems, "identifier")
	assert.Contains(t, problems, "password")
}

func TestHandlerRegisterDuplicate(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/api/auth/register", `{"identifier":"bob","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := postJSON(t, srv.URL+"/api/auth/register", `{"identifier":"bob","password":"hunter22"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "fail", env.Status)
}

func TestHandlerRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, env := postJSON(t, srv.URL+"/api/auth/register", `{"identifier":"alice","password":"hunter22","admin":true}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "fail", env.Status)
}

func TestHandlerLoginFailuresIdenticalBody(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/api/auth/register", `{"identifier":"carol","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	respUnknown, envUnknown := postJSON(t, srv.URL+"/api/auth/login", `{"identifier":"nobody","password":"hunter22"}`)
	respWrongPw, envWrongPw := postJSON(t, srv.URL+"/api/auth/login", `{"identifier":"carol","password":"wrong-password"}`)

	require.Equal(t, http.StatusUnauthorized, respUnknown.StatusCode)
	require.Equal(t, http.StatusUnauthorized, respWrongPw.StatusCode)
	// Byte-identical bodies: the response must not leak which half failed.
	assert.Equal(t, envUnknown, envWrongPw)
}

func TestHandlerRefreshRotation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	_, env := postJSON(t, srv.URL+"/api/auth/register", `{"identifier":"dave","password":"hunter22"}`)
	var first tokenPairResponse
	require.NoError(t, json.Unmarshal(env.Data, &first))

	body, err := json.Marshal(refreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)

	resp, env := postJSON(t, srv.URL+"/api/auth/refresh", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", env.Status)

	var second tokenPairResponse
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The superseded token is dead.
	resp, env = postJSON(t, srv.URL+"/api/auth/refresh", string(body))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "fail", env.Status)
}

func TestHandlerRefreshRequiresToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, env := postJSON(t, srv.URL+"/api/auth/refresh", `{"refreshToken":""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "fail", env.Status)
}

func TestHandlerLogout(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	_, env := postJSON(t, srv.URL+"/api/auth/register", `{"identifier":"erin","password":"hunter22"}`)
	var pair tokenPairResponse
	require.NoError(t, json.Unmarshal(env.Data, &pair))

	body, err := json.Marshal(logoutRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)

	resp, env := postJSON(t, srv.URL+"/api/auth/logout", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", env.Status)

	resp, _ = postJSON(t, srv.URL+"/api/auth/refresh", string(body))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
