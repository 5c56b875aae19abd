package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string
	LogFormat   string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret []byte
	SessionTTL    time.Duration
	CookieSecure  bool
	CSRFEnabled   bool

	JWTAccessSecret    []byte
	JWTRefreshSecret   []byte
	RefreshTokenPepper string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration

	AdminSignupCode string
	AdminEmail      string
	AdminPassword   string

	AuthRateLimit int

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	ClerkSecretKey string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	JaegerEndpoint string
}

// Load reads the process environment, optionally seeded from a .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),
		LogFormat:   EnvDefault("LOG_FORMAT", "json"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       EnvIntDefault("REDIS_DB", 0),

		SessionSecret: []byte(os.Getenv("SESSION_SECRET")),
		SessionTTL:    EnvDurationDefault("SESSION_TTL", 4*time.Hour),
		CookieSecure:  EnvBoolDefault("COOKIE_SECURE", true),
		CSRFEnabled:   EnvBoolDefault("CSRF_ENABLED", true),

		JWTAccessSecret:    []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret:   []byte(os.Getenv("JWT_REFRESH_SECRET")),
		RefreshTokenPepper: os.Getenv("REFRESH_TOKEN_PEPPER"),
		AccessTTL:          EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:         EnvDurationDefault("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		AdminSignupCode: os.Getenv("ADMIN_SIGNUP_CODE"),
		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),

		AuthRateLimit: EnvIntDefault("AUTH_RATE_LIMIT", 20),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  EnvDefault("GOOGLE_REDIRECT_URI", "http://localhost:8080/auth/google/callback"),

		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
	}
}

// Validate reports every missing required setting at once.
func (c Config) Validate() error {
	var r required
	r.str(c.DatabaseURL, "DATABASE_URL")
	r.bytes(c.JWTAccessSecret, "JWT_SECRET")
	r.bytes(c.JWTRefreshSecret, "JWT_REFRESH_SECRET")
	r.str(c.RefreshTokenPepper, "REFRESH_TOKEN_PEPPER")
	r.bytes(c.SessionSecret, "SESSION_SECRET")
	if c.AuthRateLimit <= 0 {
		r = append(r, fmt.Errorf("AUTH_RATE_LIMIT must be positive, got %d", c.AuthRateLimit))
	}
	return r.err()
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
