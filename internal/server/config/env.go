package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/playlistdash/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variable names read by parseEnv.
const (
	EnvHTTPAddr          = "PLAYLISTDASH_HTTP_ADDR"
	EnvDatabaseDSN       = "PLAYLISTDASH_DATABASE_DSN"
	EnvSecretKey         = "PLAYLISTDASH_SECRET_KEY"
	EnvSecureCookies     = "PLAYLISTDASH_SECURE_COOKIES"
	EnvS3RootUser        = "PLAYLISTDASH_S3_ROOT_USER"
	EnvS3RootPassword    = "PLAYLISTDASH_S3_ROOT_PASSWORD"
	EnvS3Bucket          = "PLAYLISTDASH_STORAGE_BUCKET"
	EnvS3Region          = "PLAYLISTDASH_S3_REGION"
	EnvS3BaseEndpoint    = "PLAYLISTDASH_S3_BASE_ENDPOINT"
	EnvStoragePrefix     = "PLAYLISTDASH_STORAGE_PREFIX"
	EnvRedisAddr         = "PLAYLISTDASH_REDIS_ADDR"
	EnvDashboardCacheTTL = "PLAYLISTDASH_DASHBOARD_CACHE_TTL"
	EnvReadOnlyUsers     = "READ_ONLY_USERS"
	EnvLogFormat         = "PLAYLISTDASH_LOG_FORMAT"
	EnvLogLevel          = "PLAYLISTDASH_LOG_LEVEL"
	EnvSentryDSN         = "SENTRY_DSN"
)

// loadDotenv is a seam for tests.
var loadDotenv = godotenv.Load

// parseEnv loads a dotenv file (the -env flag, or ./.env when present) and
// then copies any set variables into config. Variables already present in
// the process environment win over the dotenv file. A missing default .env
// is ignored; a missing explicit file or a malformed value panics.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlag(); path != "" {
		if err := loadDotenv(path); err != nil {
			panic(err)
		}
	} else if err := loadDotenv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	envString(&config.HTTPAddr, EnvHTTPAddr)
	envString(&config.DatabaseDSN, EnvDatabaseDSN)
	envString(&config.SecretKey, EnvSecretKey)
	if v, ok := os.LookupEnv(EnvSecureCookies); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.SecureCookies = b
	}
	envString(&config.S3RootUser, EnvS3RootUser)
	envString(&config.S3RootPassword, EnvS3RootPassword)
	envString(&config.S3Bucket, EnvS3Bucket)
	envString(&config.S3Region, EnvS3Region)
	envString(&config.S3BaseEndpoint, EnvS3BaseEndpoint)
	envString(&config.StoragePrefix, EnvStoragePrefix)
	envString(&config.RedisAddr, EnvRedisAddr)
	if v := os.Getenv(EnvDashboardCacheTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		config.DashboardCacheTTL = d
	}
	if v, ok := os.LookupEnv(EnvReadOnlyUsers); ok {
		config.ReadOnlyUsers = splitList(v)
	}
	envString(&config.LogFormat, EnvLogFormat)
	envString(&config.LogLevel, EnvLogLevel)
	envString(&config.SentryDSN, EnvSentryDSN)
}

func envString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}
