package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureHeaders(t *testing.T) (*httptest.Server, *http.Header) {
	t.Helper()
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestGetClient_Bearer(t *testing.T) {
	server, got := captureHeaders(t)

	client, err := GetClient(context.Background(), Credentials{Token: "secret"})
	require.NoError(t, err)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
	assert.Empty(t, got.Get("X-AUTH-USER"))
}

func TestGetClient_Legacy(t *testing.T) {
	server, got := captureHeaders(t)

	client, err := GetClient(context.Background(), Credentials{User: "susan", Token: "secret"})
	require.NoError(t, err)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "susan", got.Get("X-AUTH-USER"))
	assert.Equal(t, "secret", got.Get("X-AUTH-TOKEN"))
	assert.Empty(t, got.Get("Authorization"))
}

func TestGetClient_TokenFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, xdgAppName), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, xdgAppName, TokenFile), []byte("from-file\n"), 0o600))

	server, got := captureHeaders(t)
	client, err := GetClient(context.Background(), Credentials{})
	require.NoError(t, err)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer from-file", got.Get("Authorization"))
}

func TestGetClient_NoToken(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := GetClient(context.Background(), Credentials{})
	assert.Error(t, err)
}

func TestTokenFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"abc","token_type":"Bearer"}`), 0o600))

	tok, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
}
