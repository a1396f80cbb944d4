package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const testOAuthClient = `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestOAuthConfigInvalidClient(t *testing.T) {
	_, err := New(context.Background(), Config{
		SpreadsheetID: "test-id",
		OAuth:         OAuthConfig{ClientJSON: "invalid-json", TokenJSON: `{"access_token":"test"}`},
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got: %v", err)
	}
}

func TestOAuthConfigMissingToken(t *testing.T) {
	_, err := OAuthConfig{ClientJSON: testOAuthClient}.TokenSource(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing oauth token") {
		t.Fatalf("expected missing token error, got: %v", err)
	}
}

func TestSaveTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %v, want 0600", perm)
	}

	got, err := OAuthConfig{ClientJSON: testOAuthClient, TokenFile: path}.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.Expiry.Equal(want.Expiry) {
		t.Fatalf("token = %+v, want %+v", got, want)
	}

	if _, err := (OAuthConfig{ClientJSON: testOAuthClient, TokenFile: path}).TokenSource(context.Background()); err != nil {
		t.Fatalf("TokenSource: %v", err)
	}
}
