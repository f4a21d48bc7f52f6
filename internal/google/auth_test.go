package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clavrr/clavr/internal/config"
)

func newTestAuth(t *testing.T) *Auth {
	t.Helper()
	return NewAuth(config.GoogleConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		TokenDir:     t.TempDir(),
	})
}

func TestAuthURL(t *testing.T) {
	auth := newTestAuth(t)

	url := auth.AuthURL()
	if !strings.Contains(url, "test-client-id") {
		t.Errorf("auth URL should contain the client ID, got %q", url)
	}
	if !strings.Contains(url, "accounts.google.com") {
		t.Errorf("auth URL should point at Google, got %q", url)
	}
}

func TestHasTokenForAccount(t *testing.T) {
	auth := newTestAuth(t)

	if auth.HasTokenForAccount("default") {
		t.Error("expected no token for a fresh directory")
	}

	if err := os.WriteFile(auth.tokenFile("default"), []byte("access refresh"), 0600); err != nil {
		t.Fatal(err)
	}

	if !auth.HasTokenForAccount("default") {
		t.Error("expected token to be found")
	}
	if auth.HasTokenForAccount("work") {
		t.Error("accounts should have separate token files")
	}
}

func TestTokenFilePerAccount(t *testing.T) {
	auth := newTestAuth(t)

	def := auth.tokenFile("")
	if filepath.Base(def) != "google-default.token" {
		t.Errorf("empty account should map to default, got %q", def)
	}

	work := auth.tokenFile("work")
	if filepath.Base(work) != "google-work.token" {
		t.Errorf("unexpected token file name %q", work)
	}
}

func TestTokenSourceForAccount(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.TokenSourceForAccount(ctx, "default"); err == nil {
		t.Error("expected error when no token file exists")
	}

	if err := os.WriteFile(auth.tokenFile("default"), []byte("not-two-fields"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := auth.TokenSourceForAccount(ctx, "default"); err == nil {
		t.Error("expected error for malformed token file")
	}

	if err := os.WriteFile(auth.tokenFile("default"), []byte("access-token refresh-token"), 0600); err != nil {
		t.Fatal(err)
	}
	ts, err := auth.TokenSourceForAccount(ctx, "default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts == nil {
		t.Fatal("expected a token source")
	}
}

func TestFileTokenProvider(t *testing.T) {
	auth := newTestAuth(t)
	provider := NewFileTokenProvider(auth)

	if provider.HasTokenForAccount("default") {
		t.Error("expected no token for a fresh directory")
	}

	if err := os.WriteFile(auth.tokenFile("default"), []byte("access refresh"), 0600); err != nil {
		t.Fatal(err)
	}
	if !provider.HasTokenForAccount("default") {
		t.Error("expected token to be found through the provider")
	}
}
