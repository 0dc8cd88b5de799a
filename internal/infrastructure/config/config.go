// Package config loads the application configuration from config.toml,
// environment variables with the ASSETTRACK_ prefix, and built-in
// defaults, in that order of precedence (environment wins).
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of the application configuration tree.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Anomaly   AnomalyConfig   `mapstructure:"anomaly"`
	Report    ReportConfig    `mapstructure:"report"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// RedisConfig holds the Redis connection settings shared by the total
// cache and the token blacklist.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret                 string        `mapstructure:"secret"`
	RefreshSecret          string        `mapstructure:"refresh_secret"`
	AccessTokenExpiration  time.Duration `mapstructure:"access_token_expiration"`
	RefreshTokenExpiration time.Duration `mapstructure:"refresh_token_expiration"`
	MaxRefreshCount        int           `mapstructure:"max_refresh_count"`
	Issuer                 string        `mapstructure:"issuer"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// HTTPConfig holds the HTTP server settings.
type HTTPConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodySize       int64         `mapstructure:"max_body_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	CORSAllowOrigins  []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods  []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders  []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies"`
}

// ReconcileConfig holds the reconciliation business-rule thresholds.
type ReconcileConfig struct {
	// LargeChangeRatio is the relative swing, as a fraction of the
	// current quantity, beyond which a warning is attached.
	LargeChangeRatio float64 `mapstructure:"large_change_ratio"`
	// LargeChangeFromZero is the absolute change that counts as large
	// when the current quantity is zero.
	LargeChangeFromZero float64 `mapstructure:"large_change_from_zero"`
	// HistoryDeltaMultiplier is the multiple of the recent average
	// delta that warrants a warning.
	HistoryDeltaMultiplier float64 `mapstructure:"history_delta_multiplier"`
	// HistoryWindow is how many recent records feed the average delta.
	HistoryWindow int `mapstructure:"history_window"`
	// ReviewRatio is the net change fraction above which validation
	// notes are suggested.
	ReviewRatio float64 `mapstructure:"review_ratio"`
	// FormulaCacheLimit caps the compiled formula cache.
	FormulaCacheLimit int `mapstructure:"formula_cache_limit"`
}

// AnomalyConfig holds anomaly detection settings.
type AnomalyConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ReportConfig holds historical reporting settings.
type ReportConfig struct {
	TrendMonths   int           `mapstructure:"trend_months"`    // default months in a trend series
	TotalCacheTTL time.Duration `mapstructure:"total_cache_ttl"` // redis TTL for resolved monthly totals
}

// TelemetryConfig holds the OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"` // gRPC, e.g. "localhost:4317"
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`     // 0.0 to 1.0
	ServiceName       string  `mapstructure:"service_name"`
	Insecure          bool    `mapstructure:"insecure"` // non-TLS collector connection, development only

	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"` // keep off in production
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// Load reads config.toml (searched in ., ./backend, and /app), applies
// ASSETTRACK_ environment overrides, fills in defaults, and validates
// the result. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ASSETTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers a default for every key. Registering them up
// front also makes every key visible to AutomaticEnv, so each one can
// be overridden through the environment.
func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"app.name": "assettrack-backend",
		"app.env":  "development",
		"app.port": "8080",

		"database.host":               "localhost",
		"database.port":               5432,
		"database.user":               "postgres",
		"database.password":           "",
		"database.dbname":             "assettrack",
		"database.sslmode":            "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  60,
		"database.conn_max_idle_time": 30,

		"redis.host":     "localhost",
		"redis.port":     6379,
		"redis.password": "",
		"redis.db":       0,

		"jwt.secret":                   "",
		"jwt.refresh_secret":           "",
		"jwt.access_token_expiration":  15 * time.Minute,
		"jwt.refresh_token_expiration": 7 * 24 * time.Hour,
		"jwt.max_refresh_count":        50,
		"jwt.issuer":                   "assettrack-backend",

		"log.level":  "info",
		"log.format": "console",
		"log.output": "stdout",

		"http.read_timeout":        15 * time.Second,
		"http.write_timeout":       15 * time.Second,
		"http.idle_timeout":        60 * time.Second,
		"http.max_header_bytes":    1 << 20,
		"http.max_body_size":       int64(10 << 20),
		"http.rate_limit_enabled":  false,
		"http.rate_limit_requests": 100,
		"http.rate_limit_window":   time.Minute,
		// No default CORS origins: an empty list allows no cross-origin
		// requests until origins are configured explicitly.
		"http.cors_allow_origins": []string{},
		"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"},
		"http.trusted_proxies":    []string{},

		"reconcile.large_change_ratio":       0.5,
		"reconcile.large_change_from_zero":   100.0,
		"reconcile.history_delta_multiplier": 2.0,
		"reconcile.history_window":           5,
		"reconcile.review_ratio":             0.3,
		"reconcile.formula_cache_limit":      100,

		"anomaly.enabled": true,

		"report.trend_months":    3,
		"report.total_cache_ttl": time.Hour,

		"telemetry.enabled":                 false,
		"telemetry.collector_endpoint":      "localhost:4317",
		"telemetry.sampling_ratio":          1.0,
		"telemetry.service_name":            "assettrack-backend",
		"telemetry.insecure":                false,
		"telemetry.db_trace_enabled":        false,
		"telemetry.db_log_full_sql":         false,
		"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	// The change thresholds are fractions of the current quantity.
	if c.Reconcile.LargeChangeRatio <= 0 || c.Reconcile.LargeChangeRatio > 1 {
		return fmt.Errorf("reconcile.large_change_ratio must be in (0, 1], got %f", c.Reconcile.LargeChangeRatio)
	}
	if c.Reconcile.ReviewRatio <= 0 || c.Reconcile.ReviewRatio > 1 {
		return fmt.Errorf("reconcile.review_ratio must be in (0, 1], got %f", c.Reconcile.ReviewRatio)
	}
	if c.Reconcile.HistoryDeltaMultiplier < 1 {
		return fmt.Errorf("reconcile.history_delta_multiplier must be at least 1, got %f", c.Reconcile.HistoryDeltaMultiplier)
	}
	if c.Reconcile.HistoryWindow <= 0 {
		return fmt.Errorf("reconcile.history_window must be positive")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

// validateProduction rejects settings that are acceptable in
// development but unsafe with real data.
func (c *Config) validateProduction() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required in production")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret must be at least 32 characters in production")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
		}
	}
	if c.Telemetry.DBLogFullSQL {
		return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
	}
	return nil
}

// DSN returns the PostgreSQL connection URL with escaped credentials.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
