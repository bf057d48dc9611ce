// Package env loads secrets from .env files and the process environment,
// and the Google Ads client settings from google-ads.yaml.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	VarFacebookToken      = "FACEBOOK_ACCESS_TOKEN"
	VarSlackToken         = "SLACK_BOT_TOKEN"
	VarAdsDeveloperToken  = "GOOGLE_ADS_DEVELOPER_TOKEN"
	VarAdsLoginCustomerID = "GOOGLE_ADS_LOGIN_CUSTOMER_ID"
	VarProduction         = "ADREPORTS_PRODUCTION"
	VarWarehouseDSN       = "ADREPORTS_WAREHOUSE_DSN"
)

// Secrets holds values that never go in config.toml.
type Secrets struct {
	FacebookToken      string
	SlackToken         string
	AdsDeveloperToken  string
	AdsLoginCustomerID string
	WarehouseDSN       string

	// Production is nil when ADREPORTS_PRODUCTION is unset.
	Production *bool
}

// Load reads the given .env files into the process environment and then
// collects Secrets. Missing files are skipped; variables already set in
// the environment win over file values.
func Load(files ...string) (*Secrets, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup collects Secrets through lookup.
func FromLookup(lookup func(string) (string, bool)) (*Secrets, error) {
	get := func(name string) string {
		v, _ := lookup(name)
		return strings.TrimSpace(v)
	}

	s := &Secrets{
		FacebookToken:      get(VarFacebookToken),
		SlackToken:         get(VarSlackToken),
		AdsDeveloperToken:  get(VarAdsDeveloperToken),
		AdsLoginCustomerID: strings.ReplaceAll(get(VarAdsLoginCustomerID), "-", ""),
		WarehouseDSN:       get(VarWarehouseDSN),
	}

	if raw := get(VarProduction); raw != "" {
		prod, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s=%q: %w", VarProduction, raw, err)
		}
		s.Production = &prod
	}
	return s, nil
}

// AdsConfig is the content of google-ads.yaml.
type AdsConfig struct {
	DeveloperToken  string `yaml:"developer_token"`
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
	RefreshToken    string `yaml:"refresh_token"`
	LoginCustomerID string `yaml:"login_customer_id"`
}

// LoadAdsConfig parses a google-ads.yaml file.
func LoadAdsConfig(path string) (*AdsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseAdsConfig(data)
}

// ParseAdsConfig parses google-ads.yaml content.
func ParseAdsConfig(data []byte) (*AdsConfig, error) {
	var cfg AdsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse google-ads.yaml: %w", err)
	}
	cfg.LoginCustomerID = strings.ReplaceAll(cfg.LoginCustomerID, "-", "")
	return &cfg, nil
}

// WithSecrets returns a copy with environment overrides applied.
func (c AdsConfig) WithSecrets(s *Secrets) AdsConfig {
	if s == nil {
		return c
	}
	if s.AdsDeveloperToken != "" {
		c.DeveloperToken = s.AdsDeveloperToken
	}
	if s.AdsLoginCustomerID != "" {
		c.LoginCustomerID = s.AdsLoginCustomerID
	}
	return c
}

// Validate reports the first missing required field.
func (c AdsConfig) Validate() error {
	switch {
	case c.DeveloperToken == "":
		return errors.New("google-ads.yaml: developer_token is required")
	case c.ClientID == "" || c.ClientSecret == "":
		return errors.New("google-ads.yaml: client_id and client_secret are required")
	case c.RefreshToken == "":
		return errors.New("google-ads.yaml: refresh_token is required")
	}
	return nil
}
