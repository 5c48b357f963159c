package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/playlistdash/internal/flagx"
	"github.com/dmitrijs2005/playlistdash/internal/timex"
)

// FileConfig is the on-disk shape of a config file. Both JSON and TOML use
// the same snake_case keys; durations use timex.Duration so "5m" works.
//
// Only fields present in the file override what is already in Config.
type FileConfig struct {
	HTTPAddr                string          `json:"http_addr" toml:"http_addr"`
	DatabaseDSN             string          `json:"database_dsn" toml:"database_dsn"`
	SecretKey               string          `json:"secret_key" toml:"secret_key"`
	SessionValidityDuration *timex.Duration `json:"session_validity_duration" toml:"session_validity_duration"`
	SecureCookies           *bool           `json:"secure_cookies" toml:"secure_cookies"`
	S3RootUser              string          `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword          string          `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket                string          `json:"s3_bucket" toml:"s3_bucket"`
	S3Region                string          `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint          string          `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
	StoragePrefix           string          `json:"storage_prefix" toml:"storage_prefix"`
	RedisAddr               string          `json:"redis_addr" toml:"redis_addr"`
	DashboardCacheTTL       *timex.Duration `json:"dashboard_cache_ttl" toml:"dashboard_cache_ttl"`
	ReadOnlyUsers           []string        `json:"read_only_users" toml:"read_only_users"`
	MaxAudioBytes           int64           `json:"max_audio_bytes" toml:"max_audio_bytes"`
	MaxCoverDimension       int             `json:"max_cover_dimension" toml:"max_cover_dimension"`
	LogFormat               string          `json:"log_format" toml:"log_format"`
	LogLevel                string          `json:"log_level" toml:"log_level"`
	SentryDSN               string          `json:"sentry_dsn" toml:"sentry_dsn"`
}

// parseFile loads the file named by -c/-config into config. A ".toml"
// extension selects TOML, anything else is read as JSON. No flag means
// nothing is loaded; an unreadable or malformed file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.SessionValidityDuration != nil {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.StoragePrefix, c.StoragePrefix)
	setString(&config.RedisAddr, c.RedisAddr)
	if c.DashboardCacheTTL != nil {
		config.DashboardCacheTTL = c.DashboardCacheTTL.Duration
	}
	if c.ReadOnlyUsers != nil {
		config.ReadOnlyUsers = c.ReadOnlyUsers
	}
	if c.MaxAudioBytes > 0 {
		config.MaxAudioBytes = c.MaxAudioBytes
	}
	if c.MaxCoverDimension > 0 {
		config.MaxCoverDimension = c.MaxCoverDimension
	}
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.SentryDSN, c.SentryDSN)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
