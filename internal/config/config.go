package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the dashboard process.
// All values come from env, optionally seeded from a .env file.
// No business logic should depend on raw environment variables.
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	Cache CacheConfig
	Web   WebConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	// Driver is the database/sql driver name: sqlite3 (default) or pgx.
	Driver string

	// Path is the sqlite database file. The dashboard opens it read-only.
	Path string

	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. An empty Host disables the shared cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig controls payload caching. TTL 0 disables it.
type CacheConfig struct {
	TTL  time.Duration
	Size int
}

type WebConfig struct {
	// BuildDir holds the compiled front end (index.html, assets/).
	BuildDir string
	// ProxyPrefix is the path the reverse proxy mounts the dashboard under. Empty disables stripping.
	ProxyPrefix string
}

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"

	defaultPort        = 8080
	defaultDBPath      = "data/dashboard.db"
	defaultRedisPort   = 6379
	defaultCacheSize   = 256
	defaultBuildDir    = "frontend/dist"
	defaultProxyPrefix = "/ringba-sync-dashboard"
)

// LoadDotEnv seeds the environment from the given files (".env" when none).
// Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	return FromEnv()
}

// FromEnv reads the process environment without touching .env files.
func FromEnv() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = envOr("APP_ENV", "local")
	c.App.Port = intOr(&parseErrs, "APP_PORT", defaultPort)

	c.DB.Driver = envOr("DB_DRIVER", DriverSQLite)
	c.DB.Path = envOr("DB_PATH", defaultDBPath)
	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port = intOr(&parseErrs, "DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port = intOr(&parseErrs, "REDIS_PORT", defaultRedisPort)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB = intOr(&parseErrs, "REDIS_DB", 0)

	c.Cache.TTL = durationOr(&parseErrs, "CACHE_TTL", 0)
	c.Cache.Size = intOr(&parseErrs, "CACHE_SIZE", defaultCacheSize)

	c.Web.BuildDir = envOr("BUILD_DIR", defaultBuildDir)
	c.Web.ProxyPrefix = defaultProxyPrefix
	if v, ok := os.LookupEnv("PROXY_PREFIX"); ok {
		c.Web.ProxyPrefix = strings.TrimSpace(v)
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.DB.Driver == DriverPostgres && c.DB.SSLMode == "" && !c.IsProduction() {
		// Local-friendly default; production must be explicit.
		c.DB.SSLMode = "disable"
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite3"))
		}
	case DriverPostgres:
		if c.DB.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required for pgx"))
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required for pgx"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required for pgx"))
		}
		if c.DB.SSLMode == "" {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else if !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of %s, %s, got %q", DriverSQLite, DriverPostgres, c.DB.Driver))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB must not be negative, got %d", c.Redis.DB))
	}

	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must not be negative, got %s", c.Cache.TTL))
	}
	if c.Cache.Size <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_SIZE must be positive, got %d", c.Cache.Size))
	}

	if c.Web.BuildDir == "" {
		errs = append(errs, errors.New("BUILD_DIR is required"))
	}
	if c.Web.ProxyPrefix != "" && !strings.HasPrefix(c.Web.ProxyPrefix, "/") {
		errs = append(errs, fmt.Errorf("PROXY_PREFIX must start with /, got %q", c.Web.ProxyPrefix))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// DSN returns the data source name for the configured driver.
// Avoid logging it; for pgx it contains secrets.
func (c Config) DSN() string {
	if c.DB.Driver == DriverPostgres {
		return c.PostgresDSN()
	}
	return c.SQLiteDSN()
}

// SQLiteDSN opens the file read-only; a missing file fails at connect time
// instead of creating an empty database.
func (c Config) SQLiteDSN() string {
	return fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", c.DB.Path)
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisEnabled() bool { return c.Redis.Host != "" }

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c Config) CacheEnabled() bool { return c.Cache.TTL > 0 }

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intOr(errs *[]error, key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return def
	}
	return n
}

func durationOr(errs *[]error, key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a duration like 30s, got %q", key, v))
		return def
	}
	return d
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
