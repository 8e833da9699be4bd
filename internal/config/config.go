package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr  string
	PublicURL string
	LogLevel  string

	DBDriver    string
	DatabaseURL string
	DBHost      string
	DBPort      int
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CookieSecure  bool

	PaymentSecretKey string
	PaymentCurrency  string

	UploadsDir    string
	MaxUploadSize string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	CacheSize int
	CacheTTL  time.Duration

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

var defaults = map[string]any{
	"HTTP_ADDR":        ":8080",
	"PUBLIC_URL":       "http://localhost:8080",
	"LOG_LEVEL":        "info",
	"DB_DRIVER":        "postgres",
	"DB_HOST":          "localhost",
	"DB_PORT":          5432,
	"DB_USER":          "postgres",
	"DB_NAME":          "community_shop",
	"DB_SSLMODE":       "disable",
	"ACCESS_TTL":       "15m",
	"REFRESH_TTL":      "168h",
	"COOKIE_SECURE":    false,
	"PAYMENT_CURRENCY": "eur",
	"UPLOADS_DIR":      "uploads",
	"MAX_UPLOAD_SIZE":  "32M",
	"ES_INDEX":         "products",
	"CACHE_SIZE":       128,
	"CACHE_TTL":        "30s",
}

// Load reads .env (if present) and then the process environment. Environment values win.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("config: .env not loaded, using process environment", "error", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}

	cfg := &Config{
		HTTPAddr:  v.GetString("HTTP_ADDR"),
		PublicURL: strings.TrimRight(v.GetString("PUBLIC_URL"), "/"),
		LogLevel:  v.GetString("LOG_LEVEL"),

		DBDriver:    strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL: v.GetString("DATABASE_URL"),
		DBHost:      v.GetString("DB_HOST"),
		DBPort:      v.GetInt("DB_PORT"),
		DBUser:      v.GetString("DB_USER"),
		DBPassword:  v.GetString("DB_PASSWORD"),
		DBName:      v.GetString("DB_NAME"),
		DBSSLMode:   v.GetString("DB_SSLMODE"),

		JWTSecret:     []byte(v.GetString("JWT_SECRET")),
		RefreshSecret: []byte(v.GetString("REFRESH_SECRET")),
		AccessTTL:     v.GetDuration("ACCESS_TTL"),
		RefreshTTL:    v.GetDuration("REFRESH_TTL"),
		CookieSecure:  v.GetBool("COOKIE_SECURE"),

		PaymentSecretKey: v.GetString("PAYMENT_SECRET_KEY"),
		PaymentCurrency:  strings.ToLower(v.GetString("PAYMENT_CURRENCY")),

		UploadsDir:    v.GetString("UPLOADS_DIR"),
		MaxUploadSize: v.GetString("MAX_UPLOAD_SIZE"),

		KafkaBrokers: CSV(v.GetString("KAFKA_BROKERS")),

		ESURL:      v.GetString("ES_URL"),
		ESUser:     v.GetString("ES_USER"),
		ESPassword: v.GetString("ES_PASSWORD"),
		ESIndex:    v.GetString("ES_INDEX"),

		CacheSize: v.GetInt("CACHE_SIZE"),
		CacheTTL:  v.GetDuration("CACHE_TTL"),

		AdminUsername: v.GetString("ADMIN_USERNAME"),
		AdminEmail:    v.GetString("ADMIN_EMAIL"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) == 0 {
		errs = append(errs, errors.New("missing required env JWT_SECRET"))
	}
	if len(c.RefreshSecret) == 0 {
		errs = append(errs, errors.New("missing required env REFRESH_SECRET"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TTL and REFRESH_TTL must be positive"))
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	}
	return errors.Join(errs...)
}

// DSN prefers DATABASE_URL and otherwise assembles a postgres URL from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DBDriver == "sqlite" {
		return "community_shop.db"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
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
