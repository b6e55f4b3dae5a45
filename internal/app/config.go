package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"quizrunner/internal/exam"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ContentSourceDir      = "dir"
	ContentSourceHTTP     = "http"
	ContentSourcePostgres = "postgres"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	// contentMountPath serves passage images of the dir source.
	contentMountPath = "/content"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config stores runtime configuration loaded from an optional config file and
// environment variables.
type Config struct {
	AppEnv   string `mapstructure:"app_env"`
	HTTPAddr string `mapstructure:"http_addr"`

	ContentSource  string `mapstructure:"content_source"`
	ContentDir     string `mapstructure:"content_dir"`
	ContentBaseURL string `mapstructure:"content_base_url"`
	ManifestPath   string `mapstructure:"manifest_path"`
	ExamDir        string `mapstructure:"exam_dir"`
	AssetBaseURL   string `mapstructure:"asset_base_url"`
	FetchTimeoutS  int    `mapstructure:"fetch_timeout_seconds"`

	DBDSN             string `mapstructure:"db_dsn"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifeMins int    `mapstructure:"db_conn_max_lifetime_minutes"`

	SessionStore      string `mapstructure:"session_store"`
	RedisURL          string `mapstructure:"redis_url"`
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`

	CSRFEnforced       bool `mapstructure:"csrf_enforced"`
	RateLimitPerMinute int  `mapstructure:"rate_limit_per_minute"`
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutS) * time.Second
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

var configKeys = map[string]any{
	"app_env":                      "development",
	"http_addr":                    ":8080",
	"content_source":               ContentSourceDir,
	"content_dir":                  "data",
	"content_base_url":             "",
	"manifest_path":                "exams.json",
	"exam_dir":                     "exams",
	"asset_base_url":               "",
	"fetch_timeout_seconds":        10,
	"db_dsn":                       "",
	"db_max_open_conns":            10,
	"db_max_idle_conns":            10,
	"db_conn_max_lifetime_minutes": 30,
	"session_store":                SessionStoreMemory,
	"redis_url":                    "redis://localhost:6379/0",
	"session_ttl_minutes":          int(exam.DefaultSessionTTL / time.Minute),
	"csrf_enforced":                false,
	"rate_limit_per_minute":        60,
}

// LoadConfig reads .env (if present), then config/config.yaml (if present),
// then environment variables, later sources winning.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	for k, def := range configKeys {
		v.SetDefault(k, def)
		_ = v.BindEnv(k, strings.ToUpper(k))
	}

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg = cfg.withAssetBase()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// withAssetBase resolves passage images against the place the exam documents
// come from when ASSET_BASE_URL is not set.
func (c Config) withAssetBase() Config {
	if strings.TrimSpace(c.AssetBaseURL) != "" {
		return c
	}
	switch c.ContentSource {
	case ContentSourceDir:
		c.AssetBaseURL = contentMountPath
	case ContentSourceHTTP:
		c.AssetBaseURL = c.ContentBaseURL
	}
	return c
}

func (c Config) Validate() error {
	switch c.ContentSource {
	case ContentSourceDir:
		if strings.TrimSpace(c.ContentDir) == "" {
			return fmt.Errorf("%w: CONTENT_DIR is required for the dir source", ErrInvalidConfig)
		}
	case ContentSourceHTTP:
		if strings.TrimSpace(c.ContentBaseURL) == "" {
			return fmt.Errorf("%w: CONTENT_BASE_URL is required for the http source", ErrInvalidConfig)
		}
	case ContentSourcePostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("%w: DB_DSN is required for the postgres source", ErrInvalidConfig)
		}
		if strings.TrimSpace(c.AssetBaseURL) == "" {
			return fmt.Errorf("%w: ASSET_BASE_URL is required for the postgres source, images are not stored in the database", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown CONTENT_SOURCE %q", ErrInvalidConfig, c.ContentSource)
	}

	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("%w: REDIS_URL is required for the redis store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown SESSION_STORE %q", ErrInvalidConfig, c.SessionStore)
	}

	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("%w: SESSION_TTL_MINUTES must be positive", ErrInvalidConfig)
	}
	return nil
}
