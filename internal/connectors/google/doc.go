// Package google provides shared infrastructure for the Google API connectors.
//
// The ads, analytics, merchant, sheets, drive and gmail packages use it for:
//   - OAuth2 token sources built from client secrets, stored tokens or
//     refresh tokens
//   - Service factories for the google.golang.org/api clients
//   - Error classification for googleapi errors (401, 403, 404, 429)
//   - Rate limiting to stay inside per-service quotas
//
// # Usage
//
//	ts, err := google.TokenSourceFromFiles(ctx, secretsPath, tokenPath)
//	svc, err := google.NewSheetsService(ctx, ts)
//
// # OAuth2 Scopes
//
// Scopes lists every scope requested by the installed-app flow. Google Ads
// uses its own refresh token from google-ads.yaml.
package google
