package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/clavrr/clavr/internal/config"
)

// Auth manages OAuth2 credentials and per-account token files.
type Auth struct {
	clientID     string
	clientSecret string
	tokenDir     string
}

// NewAuth creates an Auth from configuration. When TokenDir is empty, tokens
// live under the user cache directory.
func NewAuth(cfg config.GoogleConfig) *Auth {
	dir := cfg.TokenDir
	if dir == "" {
		dir = filepath.Join(userCacheDir(), "clavr")
	}
	return &Auth{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenDir:     dir,
	}
}

// OAuthConfig returns the OAuth2 configuration for all Google services.
func (a *Auth) OAuthConfig() *oauth2.Config {
	const OOB = "urn:ietf:wg:oauth:2.0:oob"
	return &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  OOB,
		Scopes:       DefaultOAuthScopes,
	}
}

// AuthURL returns the OAuth URL for user authorization.
func (a *Auth) AuthURL() string {
	return a.OAuthConfig().AuthCodeURL("state")
}

func (a *Auth) tokenFile(account string) string {
	if account == "" {
		account = "default"
	}
	return filepath.Join(a.tokenDir, fmt.Sprintf("google-%s.token", account))
}

// HasTokenForAccount checks if a token file exists for the specified account.
func (a *Auth) HasTokenForAccount(account string) bool {
	_, err := os.ReadFile(a.tokenFile(account))
	return err == nil
}

// SaveToken exchanges an authorization code for tokens and saves them for the
// specified account.
func (a *Auth) SaveToken(ctx context.Context, account, authCode string) error {
	t, err := a.OAuthConfig().Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return a.writeToken(account, t)
}

func (a *Auth) writeToken(account string, t *oauth2.Token) error {
	if err := os.MkdirAll(a.tokenDir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tokenData := t.AccessToken + " " + t.RefreshToken
	if err := os.WriteFile(a.tokenFile(account), []byte(tokenData), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// TokenSourceForAccount returns an OAuth2 token source backed by the stored
// token of the specified account.
func (a *Auth) TokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error) {
	slurp, err := os.ReadFile(a.tokenFile(account))
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s", account)
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format")
	}

	ts := a.OAuthConfig().TokenSource(ctx, &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	})

	return ts, nil
}

// HTTPClientForAccount returns an HTTP client configured with OAuth2
// authentication for the specified account.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func (a *Auth) HTTPClientForAccount(ctx context.Context, account string) (*http.Client, error) {
	ts, err := a.TokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(ctx, ts), nil
}

// NewHTTPClient wraps a token source in an HTTP client forced to HTTP/1.1.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)

	transport := client.Transport.(*oauth2.Transport)
	baseTransport := &http.Transport{
		ForceAttemptHTTP2: false,
	}
	transport.Base = baseTransport

	return client
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		panic("No Windows TEMP or TMP environment variables found")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
