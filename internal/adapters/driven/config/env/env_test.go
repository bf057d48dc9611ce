package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromLookup(t *testing.T) {
	s, err := FromLookup(lookupMap(map[string]string{
		VarFacebookToken:      " fb-token ",
		VarSlackToken:         "xoxb-1",
		VarAdsLoginCustomerID: "123-456-7890",
		VarProduction:         "true",
	}))

	require.NoError(t, err)
	assert.Equal(t, "fb-token", s.FacebookToken)
	assert.Equal(t, "xoxb-1", s.SlackToken)
	assert.Equal(t, "1234567890", s.AdsLoginCustomerID)
	require.NotNil(t, s.Production)
	assert.True(t, *s.Production)
}

func TestFromLookup_ProductionUnsetOrInvalid(t *testing.T) {
	s, err := FromLookup(lookupMap(nil))
	require.NoError(t, err)
	assert.Nil(t, s.Production)

	_, err = FromLookup(lookupMap(map[string]string{VarProduction: "maybe"}))
	assert.Error(t, err)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ADREPORTS_WAREHOUSE_DSN=postgres://localhost/reports\n"), 0600))
	t.Cleanup(func() { os.Unsetenv(VarWarehouseDSN) })

	s, err := Load(filepath.Join(dir, "missing.env"), path)

	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/reports", s.WarehouseDSN)
}

func TestParseAdsConfig(t *testing.T) {
	cfg, err := ParseAdsConfig([]byte(`
developer_token: dev-token
client_id: client.apps.googleusercontent.com
client_secret: shh
refresh_token: 1//refresh
login_customer_id: 1234567890
use_proto_plus: true
`))

	require.NoError(t, err)
	assert.Equal(t, "dev-token", cfg.DeveloperToken)
	assert.Equal(t, "1234567890", cfg.LoginCustomerID)
	assert.NoError(t, cfg.Validate())

	merged := cfg.WithSecrets(&Secrets{AdsDeveloperToken: "override", AdsLoginCustomerID: "999"})
	assert.Equal(t, "override", merged.DeveloperToken)
	assert.Equal(t, "999", merged.LoginCustomerID)
	assert.Equal(t, "dev-token", cfg.DeveloperToken)
}

func TestAdsConfig_Validate(t *testing.T) {
	assert.Error(t, AdsConfig{}.Validate())
	assert.Error(t, AdsConfig{DeveloperToken: "d"}.Validate())
	assert.Error(t, AdsConfig{DeveloperToken: "d", ClientID: "c", ClientSecret: "s"}.Validate())
}

func TestParseAdsConfig_Invalid(t *testing.T) {
	_, err := ParseAdsConfig([]byte("developer_token: [unclosed"))
	assert.Error(t, err)
}

func TestLoadAdsConfig_Missing(t *testing.T) {
	_, err := LoadAdsConfig(filepath.Join(t.TempDir(), "google-ads.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
