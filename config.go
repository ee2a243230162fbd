package forumgw

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/nasermirzaei89/env"
	"github.com/nasermirzaei89/forumgw/db/sqlite3"
	"github.com/nasermirzaei89/forumgw/discuss"
	"github.com/nasermirzaei89/forumgw/random"
	"github.com/nasermirzaei89/forumgw/server"
)

type Config struct {
	DBDSN string

	Server *server.Server

	SessionName string
	SessionKey  string

	CSRFEnabled        bool
	CSRFAuthKey        string
	CSRFTrustedOrigins []string

	AuthorizationPolicyFile string

	RedisURL           string
	RateLimitPerMinute int64

	Location          *time.Location
	CommentEditWindow time.Duration

	SessionPurgeInterval time.Duration
}

// LoadConfig reads the configuration from the environment. Random secrets
// are generated when the session and CSRF keys are unset.
func LoadConfig() (*Config, error) {
	rateLimit, err := getInt64("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return nil, err
	}

	editWindow, err := getDuration("COMMENT_EDIT_WINDOW", discuss.DefaultEditWindow)
	if err != nil {
		return nil, err
	}

	purgeInterval, err := getDuration("SESSION_PURGE_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(env.GetString("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	sessionKey, err := getSecret("SESSION_KEY")
	if err != nil {
		return nil, err
	}

	csrfAuthKey, err := getSecret("CSRF_AUTH_KEY")
	if err != nil {
		return nil, err
	}

	suffix, err := random.Hex(2)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session name suffix: %w", err)
	}

	return &Config{
		DBDSN:                   env.GetString("DB_DSN", sqlite3.DefaultDSN),
		Server:                  newServer(),
		SessionName:             env.GetString("SESSION_NAME", "forumgw-"+suffix),
		SessionKey:              sessionKey,
		CSRFEnabled:             env.GetBool("CSRF_ENABLED", false),
		CSRFAuthKey:             csrfAuthKey,
		CSRFTrustedOrigins:      env.GetStringSlice("CSRF_TRUSTED_ORIGINS", []string{}),
		AuthorizationPolicyFile: env.GetString("AUTHORIZATION_POLICY_FILE", ""),
		RedisURL:                env.GetString("REDIS_URL", ""),
		RateLimitPerMinute:      rateLimit,
		Location:                location,
		CommentEditWindow:       editWindow,
		SessionPurgeInterval:    purgeInterval,
	}, nil
}

func newServer() *server.Server {
	return &server.Server{
		Port: env.GetString("PORT", server.DefaultPort),
		Host: env.GetString("HOST", ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}
}

// getSecret returns the value of key or a random 32 character secret.
func getSecret(key string) (string, error) {
	if value := env.GetString(key, ""); value != "" {
		return value, nil
	}

	secret, err := random.Hex(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", key, err)
	}

	return secret, nil
}

func getInt64(key string, def int64) (int64, error) {
	value := env.GetString(key, "")
	if value == "" {
		return def, nil
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}

	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	value := env.GetString(key, "")
	if value == "" {
		return def, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}

	return d, nil
}

func GetLogLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: GetLogLevelFromEnv()}

	if env.GetString("LOG_FORMAT", "text") == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
