package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// TokenFile is where the Kimai API token is looked up when none is
	// configured, relative to the config directory.
	TokenFile = "token"

	xdgAppName = "kimai-report"

	defaultTimeout = 30 * time.Second
)

// Credentials identify the Kimai user. Kimai 2 API tokens are sent as a
// bearer token; when User is set the legacy X-AUTH-USER/X-AUTH-TOKEN pair
// is used instead.
type Credentials struct {
	User  string
	Token string
}

// GetClient returns an *http.Client that authenticates every request.
func GetClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	if creds.Token == "" {
		tok, err := tokenFromFile(filepath.Join(mustXdgHome(), TokenFile))
		if err != nil {
			return nil, fmt.Errorf("no Kimai API token configured: %w", err)
		}
		creds.Token = tok.AccessToken
	}

	if creds.User != "" {
		return &http.Client{
			Timeout:   defaultTimeout,
			Transport: &legacyTransport{user: creds.User, token: creds.Token, base: http.DefaultTransport},
		}, nil
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token, TokenType: "Bearer"})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = defaultTimeout
	return client, nil
}

type legacyTransport struct {
	user  string
	token string
	base  http.RoundTripper
}

func (t *legacyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("X-AUTH-USER", t.user)
	r.Header.Set("X-AUTH-TOKEN", t.token)
	return t.base.RoundTrip(r)
}

// tokenFromFile reads a token file holding either a bare API token or a
// JSON encoded oauth2.Token.
func tokenFromFile(file string) (*oauth2.Token, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		return nil, fmt.Errorf("token file %s is empty", file)
	}
	if strings.HasPrefix(raw, "{") {
		tok := &oauth2.Token{}
		if err := json.Unmarshal([]byte(raw), tok); err != nil {
			return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
		}
		return tok, nil
	}
	return &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}, nil
}

func GetXdgHome() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, xdgAppName), nil
	}
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}

func mustXdgHome() string {
	dir, err := GetXdgHome()
	if err != nil {
		return "."
	}
	return dir
}
