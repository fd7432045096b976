package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	Upstream UpstreamConfig `env:",prefix=UPSTREAM_"`
	Session  SessionConfig  `env:",prefix=SESSION_"`
	Locale   LocaleConfig   `env:",prefix=LOCALE_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// UpstreamConfig configures the connection to the YouthLoop backend API.
type UpstreamConfig struct {
	BaseURL        string   `env:"BASE_URL,default=http://localhost:8081"`
	Timeout        Duration `env:"TIMEOUT,default=10s"`
	RatePerSecond  float64  `env:"RATE_PER_SECOND,default=50"`
	RateBurst      int      `env:"RATE_BURST,default=100"`
	NotifyPageSize int      `env:"NOTIFY_PAGE_SIZE,default=20"`
}

// SessionConfig configures browser session handling.
type SessionConfig struct {
	CookieName   string   `env:"COOKIE_NAME,default=yl_session"`
	CookieSecure bool     `env:"COOKIE_SECURE,default=true"`
	Secret       string   `env:"SECRET,required"`
	TTL          Duration `env:"TTL,default=7d"`
	SweepEvery   Duration `env:"SWEEP_EVERY,default=5m"`
}

// LocaleConfig configures the locale segments recognized in page paths.
type LocaleConfig struct {
	Supported []string `env:"SUPPORTED,default=zh,en"`
	Default   string   `env:"DEFAULT,default=zh"`
}

type SecurityConfig struct {
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.Session.Secret) < 32 {
		return nil, fmt.Errorf("SESSION_SECRET must be at least 32 characters long")
	}

	defaultOK := false
	for _, loc := range config.Locale.Supported {
		if loc == config.Locale.Default {
			defaultOK = true
			break
		}
	}
	if !defaultOK {
		return nil, fmt.Errorf("LOCALE_DEFAULT %q is not in LOCALE_SUPPORTED", config.Locale.Default)
	}

	return &config, nil
}
