// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Link store backends.
const (
	LinkStoreFile  = "file"
	LinkStoreRedis = "redis"
)

// Config holds all configuration parameters for the application.
type Config struct {
	Jira      JiraConfig
	Google    GoogleConfig
	Sync      SyncConfig
	LinkStore LinkStoreConfig
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string
}

// GoogleConfig holds Google Docs credentials. Either an access token or a
// service account credentials file is used.
type GoogleConfig struct {
	AccessToken     string
	CredentialsFile string
}

// SyncConfig tunes extraction and document synchronization.
type SyncConfig struct {
	// Timezone is the IANA location used when rendering timestamps
	Timezone string

	// BulkDelay is the pause between issue fetches in a bulk sync
	BulkDelay time.Duration

	// MaxLinkedIssues caps linked and sub-task issues per record
	MaxLinkedIssues int

	// MaxChildIssues caps child discovery for bulk syncs
	MaxChildIssues int

	// SuppressCoSyncedRationale drops linked-issue context for issues that
	// are also synced as top-level sections in the same batch
	SuppressCoSyncedRationale bool
}

// LinkStoreConfig selects where issue to document links are kept.
type LinkStoreConfig struct {
	Backend  string
	Path     string
	RedisURL string
}

// Location resolves the configured timezone, falling back to local time.
func (s SyncConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// LoadConfig initializes and loads configuration from environment variables
// and, when configFile is not empty, from a YAML file. Environment variables
// take precedence over the file.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("sync.timezone", "")
	v.SetDefault("sync.bulk_delay", 200*time.Millisecond)
	v.SetDefault("sync.max_linked", 10)
	v.SetDefault("sync.max_children", 100)
	v.SetDefault("sync.suppress_cosynced_rationale", false)
	v.SetDefault("linkstore.backend", LinkStoreFile)
	v.SetDefault("linkstore.path", "")

	// Map specific environment variables
	_ = v.BindEnv("jira.url", "JIRA_URL")
	_ = v.BindEnv("jira.username", "JIRA_USERNAME")
	_ = v.BindEnv("jira.token", "JIRA_TOKEN")
	_ = v.BindEnv("google.access_token", "GOOGLE_ACCESS_TOKEN")
	_ = v.BindEnv("google.credentials_file", "GOOGLE_CREDENTIALS_FILE")
	_ = v.BindEnv("sync.timezone", "JIRADOCS_TIMEZONE")
	_ = v.BindEnv("sync.bulk_delay", "JIRADOCS_BULK_DELAY")
	_ = v.BindEnv("sync.max_linked", "JIRADOCS_MAX_LINKED")
	_ = v.BindEnv("sync.max_children", "JIRADOCS_MAX_CHILDREN")
	_ = v.BindEnv("sync.suppress_cosynced_rationale", "JIRADOCS_SUPPRESS_COSYNCED_RATIONALE")
	_ = v.BindEnv("linkstore.backend", "JIRADOCS_LINKSTORE")
	_ = v.BindEnv("linkstore.path", "JIRADOCS_LINKSTORE_PATH")
	_ = v.BindEnv("linkstore.redis_url", "REDIS_URL")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	config := &Config{
		Jira: JiraConfig{
			URL:      strings.TrimSuffix(v.GetString("jira.url"), "/"),
			Username: v.GetString("jira.username"),
			Token:    v.GetString("jira.token"),
		},
		Google: GoogleConfig{
			AccessToken:     v.GetString("google.access_token"),
			CredentialsFile: v.GetString("google.credentials_file"),
		},
		Sync: SyncConfig{
			Timezone:                  v.GetString("sync.timezone"),
			BulkDelay:                 v.GetDuration("sync.bulk_delay"),
			MaxLinkedIssues:           v.GetInt("sync.max_linked"),
			MaxChildIssues:            v.GetInt("sync.max_children"),
			SuppressCoSyncedRationale: v.GetBool("sync.suppress_cosynced_rationale"),
		},
		LinkStore: LinkStoreConfig{
			Backend:  strings.ToLower(v.GetString("linkstore.backend")),
			Path:     v.GetString("linkstore.path"),
			RedisURL: v.GetString("linkstore.redis_url"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig checks values that are invalid regardless of the command run.
func validateConfig(config *Config) error {
	if config.Sync.MaxLinkedIssues <= 0 {
		return fmt.Errorf("JIRADOCS_MAX_LINKED must be positive")
	}
	if config.Sync.MaxChildIssues <= 0 {
		return fmt.Errorf("JIRADOCS_MAX_CHILDREN must be positive")
	}
	if config.Sync.BulkDelay < 0 {
		return fmt.Errorf("JIRADOCS_BULK_DELAY must not be negative")
	}
	if _, err := config.Sync.Location(); err != nil {
		return err
	}

	switch config.LinkStore.Backend {
	case LinkStoreFile:
	case LinkStoreRedis:
		if config.LinkStore.RedisURL == "" {
			return fmt.Errorf("missing required environment variables: [REDIS_URL]")
		}
	default:
		return fmt.Errorf("unknown link store backend %q", config.LinkStore.Backend)
	}

	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}

// ValidateGoogleConfig validates that some form of Google credentials exists.
func ValidateGoogleConfig(config *Config) error {
	if config.Google.AccessToken == "" && config.Google.CredentialsFile == "" {
		return fmt.Errorf("missing required environment variables: one of [GOOGLE_ACCESS_TOKEN GOOGLE_CREDENTIALS_FILE]")
	}
	return nil
}
