package container

import (
	"fmt"
	"time"
)

// Options configures the server. humacli exposes every field as a flag and
// as a SERVICE_* environment variable.
type Options struct {
	Port      int    `default:"8888"           help:"Port to listen on"             short:"p"`
	LogFormat string `default:"console"        help:"Log format: console or json"`
	RedisAddr string `default:"localhost:6379" help:"Redis server address"          short:"r"`
	BaseURL   string `help:"Public base URL used in links; defaults to http://localhost:<port>"`

	DatabaseURL string `help:"Postgres connection string; empty keeps the catalog in memory"`
	CacheTTL    string `default:"1m" help:"Redis cache TTL for ringtone lookups; 0 disables the cache"`

	RateLimitBackend string `default:"memory" help:"Rate limit counters: memory or redis"`
	AnalyticsMode    string `default:"inline" help:"Download and impression tracking: inline or stream"`

	MediaBackend      string `default:"local"     help:"Media storage: local or s3"`
	UploadDir         string `default:"./uploads" help:"Directory for local media storage"`
	S3Bucket          string `help:"S3 bucket for media"`
	S3Region          string `help:"S3 region"`
	S3Endpoint        string `help:"Custom S3 endpoint, e.g. MinIO"`
	S3AccessKeyID     string `help:"S3 access key id"`
	S3SecretAccessKey string `help:"S3 secret access key"`
	S3PathStyle       bool   `help:"Use path-style S3 addressing"`

	TokenSecret  string `help:"Secret mixed into download tokens; random per process when empty"`
	TokenMaxAge  string `default:"5m" help:"How long a download token stays valid"`
	AdminKeyHash string `help:"bcrypt hash of the admin API key; empty disables the admin API"`
	UploadRate   string `default:"2s" help:"Minimum interval between admin uploads; 0 disables the throttle"`
}

// Durations holds the parsed duration options.
type Durations struct {
	CacheTTL    time.Duration
	TokenMaxAge time.Duration
	UploadRate  time.Duration
}

// Validate checks enumerated options and parses durations.
func (o *Options) Validate() (Durations, error) {
	var d Durations

	if err := oneOf("log-format", o.LogFormat, "console", "json"); err != nil {
		return d, err
	}

	if err := oneOf("rate-limit-backend", o.RateLimitBackend, "memory", "redis"); err != nil {
		return d, err
	}

	if err := oneOf("analytics-mode", o.AnalyticsMode, "inline", "stream"); err != nil {
		return d, err
	}

	if err := oneOf("media-backend", o.MediaBackend, "local", "s3"); err != nil {
		return d, err
	}

	var err error

	if d.CacheTTL, err = parseDuration("cache-ttl", o.CacheTTL); err != nil {
		return d, err
	}

	if d.TokenMaxAge, err = parseDuration("token-max-age", o.TokenMaxAge); err != nil {
		return d, err
	}

	if d.TokenMaxAge <= 0 {
		return d, fmt.Errorf("token-max-age must be positive, got %s", o.TokenMaxAge)
	}

	if d.UploadRate, err = parseDuration("upload-rate", o.UploadRate); err != nil {
		return d, err
	}

	return d, nil
}

// PublicURL is the base for links handed to clients.
func (o *Options) PublicURL() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}

	return fmt.Errorf("invalid %s %q, expected one of %v", name, value, allowed)
}

func parseDuration(name, value string) (time.Duration, error) {
	if value == "" || value == "0" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration %s", name, value)
	}

	return d, nil
}
