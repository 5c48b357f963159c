package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/playlistdash/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret key
//	-t int      session validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-x string   storage key prefix
//	-r string   Redis address for the dashboard cache
//	-o string   comma-separated read-only identities
//	-m int      max audio upload size, MiB
//	-f string   log format: text or json
//	-v string   log level
//
// Only these flags are parsed from os.Args (see flagx.FilterArgs), so the
// config-file and env-file flags do not collide with them.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e", "-x", "-r", "-o", "-m", "-f", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.StoragePrefix, "x", config.StoragePrefix, "storage key prefix")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for dashboard cache")

	readOnly := fs.String("o", "", "comma-separated read-only users")
	maxAudio := fs.Int64("m", config.MaxAudioBytes/(1024*1024), "max audio upload size (in MiB)")

	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (text|json)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["t"] {
		config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
	}
	if set["m"] {
		config.MaxAudioBytes = *maxAudio * 1024 * 1024
	}
	if set["o"] {
		config.ReadOnlyUsers = splitList(*readOnly)
	}
}
