package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// Credential file names inside the credentials directory.
const (
	ClientSecretsFile  = "client_secret.json"
	TokenFile          = "token.json"
	ServiceAccountFile = "service_account.json"
)

// ContentScope grants Merchant Center access.
const ContentScope = "https://www.googleapis.com/auth/content"

// Scopes are requested by the installed-app flow.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveScope,
	gmail.GmailSendScope,
	analyticsdata.AnalyticsReadonlyScope,
	ContentScope,
	"https://www.googleapis.com/auth/userinfo.email",
}

// LoadOAuthConfig reads an installed-app client secrets file.
func LoadOAuthConfig(path, redirectURL string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}
	cfg, err := googleoauth.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg, nil
}

// LoadToken reads a stored token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("token %s: %w", path, domain.ErrAuthRequired)
		}
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// TokenSourceFromFiles builds a refreshing token source from a client
// secrets file and a stored token. Refreshed tokens are written back.
func TokenSourceFromFiles(ctx context.Context, secretsPath, tokenPath string) (oauth2.TokenSource, error) {
	cfg, err := LoadOAuthConfig(secretsPath, "")
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	return &persistingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		path: tokenPath,
		last: tok.AccessToken,
	}, nil
}

// TokenSourceFromDir prefers a service account in dir and falls back to
// the installed-app token files.
func TokenSourceFromDir(ctx context.Context, dir string) (oauth2.TokenSource, error) {
	saPath := filepath.Join(dir, ServiceAccountFile)
	if data, err := os.ReadFile(saPath); err == nil {
		creds, err := googleoauth.CredentialsFromJSON(ctx, data, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse service account: %w", err)
		}
		return creds.TokenSource, nil
	}
	return TokenSourceFromFiles(ctx, filepath.Join(dir, ClientSecretsFile), filepath.Join(dir, TokenFile))
}

// RefreshTokenSource builds a token source from a long-lived refresh token,
// as stored in google-ads.yaml.
func RefreshTokenSource(ctx context.Context, clientID, clientSecret, refreshToken string) oauth2.TokenSource {
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     googleoauth.Endpoint,
	}
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}

// persistingTokenSource saves every newly issued token.
type persistingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

// Token implements oauth2.TokenSource.
func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := SaveToken(p.path, tok); err != nil {
			return nil, err
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}
