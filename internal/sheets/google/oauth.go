package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// OAuthConfig holds an installed-app OAuth client and the token saved by
// cmd/oauth-init. Inline JSON takes precedence over files.
type OAuthConfig struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

func (c OAuthConfig) enabled() bool {
	return strings.TrimSpace(c.ClientJSON) != "" || strings.TrimSpace(c.ClientFile) != ""
}

// Config parses the OAuth client with the spreadsheets scope.
func (c OAuthConfig) Config() (*oauth2.Config, error) {
	b, err := readInlineOrFile(c.ClientJSON, c.ClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if b == nil {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	cfg, err := googleoauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// Token decodes the saved token.
func (c OAuthConfig) Token() (*oauth2.Token, error) {
	b, err := readInlineOrFile(c.TokenJSON, c.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if b == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return &tok, nil
}

// TokenSource refreshes the saved token as needed.
func (c OAuthConfig) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	tok, err := c.Token()
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}

// SaveToken writes tok to path readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func readInlineOrFile(inline, file string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if f := strings.TrimSpace(file); f != "" {
		return os.ReadFile(f)
	}
	return nil, nil
}
