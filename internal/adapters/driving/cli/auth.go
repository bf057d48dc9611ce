package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/adreports/internal/adapters/driving/oauth"
	"github.com/custodia-labs/adreports/internal/connectors/google"
)

// authTimeout bounds how long the browser consent may take.
const authTimeout = 5 * time.Minute

var authDir string

// googleAuthorize runs the consent flow. Replaced in tests.
var googleAuthorize = func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	flow := &oauth.Flow{Config: cfg}
	return flow.Token(ctx)
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API credentials",
}

var authGoogleCmd = &cobra.Command{
	Use:   "google",
	Short: "Authorise Google Sheets, Drive, Gmail, Analytics and Merchant Center",
	Long: `Runs the installed-app OAuth flow in the browser and stores the resulting
token in the credentials directory.

If client_secret.json is missing from the credentials directory you are asked
for the OAuth client ID and secret, and the file is created.`,
	RunE: runAuthGoogle,
}

func init() {
	authGoogleCmd.Flags().StringVar(&authDir, "dir", "", "Credentials directory (defaults to credentials_dir setting)")
	authCmd.AddCommand(authGoogleCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthGoogle(cmd *cobra.Command, _ []string) error {
	dir := authDir
	if dir == "" && settingsService != nil {
		dir = settingsService.Settings().CredentialsDir
	}
	if dir == "" {
		return errors.New("credentials directory not configured, pass --dir")
	}

	secretsPath := filepath.Join(dir, google.ClientSecretsFile)
	if _, err := os.Stat(secretsPath); errors.Is(err, os.ErrNotExist) {
		if err := promptClientSecrets(cmd, secretsPath); err != nil {
			return err
		}
	}

	cfg, err := google.LoadOAuthConfig(secretsPath, "")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	cmd.Println("Opening browser for Google authorisation...")
	tok, err := googleAuthorize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("authorisation failed: %w", err)
	}
	if tok.RefreshToken == "" {
		return errors.New("no refresh token returned, revoke access and try again")
	}

	tokenPath := filepath.Join(dir, google.TokenFile)
	if err := google.SaveToken(tokenPath, tok); err != nil {
		return err
	}
	cmd.Printf("Token saved to %s\n", tokenPath)
	return nil
}

// installedSecrets is the client secrets layout Google issues for desktop apps.
type installedSecrets struct {
	Installed struct {
		ClientID     string   `json:"client_id"`
		ClientSecret string   `json:"client_secret"`
		AuthURI      string   `json:"auth_uri"`
		TokenURI     string   `json:"token_uri"`
		RedirectURIs []string `json:"redirect_uris"`
	} `json:"installed"`
}

func promptClientSecrets(cmd *cobra.Command, path string) error {
	reader := bufio.NewReader(stdin)

	cmd.Print("OAuth client ID: ")
	clientID := readLine(reader)
	cmd.Print("OAuth client secret: ")
	clientSecret := readPassword(reader)
	cmd.Println()
	if clientID == "" || clientSecret == "" {
		return errors.New("client ID and secret are required")
	}

	var s installedSecrets
	s.Installed.ClientID = clientID
	s.Installed.ClientSecret = clientSecret
	s.Installed.AuthURI = "https://accounts.google.com/o/oauth2/auth"
	s.Installed.TokenURI = "https://oauth2.googleapis.com/token"
	s.Installed.RedirectURIs = []string{"http://127.0.0.1"}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write client secrets: %w", err)
	}
	cmd.Printf("Client secrets for %s saved to %s\n", maskSecret(clientID), path)
	return nil
}
