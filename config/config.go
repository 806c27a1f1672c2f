package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables bound onto the Config, they take precedence over the YAML file.
const (
	EnvConfigPath       = "BOOKS_CONFIG"
	EnvDatabaseURL      = "BOOKS_DATABASE_URL"
	EnvDatabaseUsername = "BOOKS_DATABASE_USERNAME"
	EnvDatabasePassword = "BOOKS_DATABASE_PASSWORD"
	EnvDatabaseDriver   = "BOOKS_DATABASE_DRIVER"
	EnvDatabaseTable    = "BOOKS_DATABASE_TABLE"
	EnvDatabaseMaxConns = "BOOKS_DATABASE_MAX_CONNS"
	EnvHTTPAddr         = "BOOKS_HTTP_ADDR"
	EnvShutdownTimeout  = "BOOKS_SHUTDOWN_TIMEOUT"
	EnvLogLevel         = "BOOKS_LOG_LEVEL"
	EnvLogFormat        = "BOOKS_LOG_FORMAT"
	EnvOTLPEndpoint     = "BOOKS_OTEL_ENDPOINT"
)

// Supported database driver identifiers.
const (
	DriverPGX      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLX     = "sqlx"
)

const (
	defaultDriver          = DriverPGX
	defaultTable           = "books"
	defaultMaxConns        = 10
	defaultHTTPAddr        = ":8080"
	defaultShutdownTimeout = 5 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
)

var ErrMissingDatabaseURL = errors.New("database url is required")
var ErrUnsupportedDriver = errors.New("unsupported database driver")
var ErrInvalidMaxConns = errors.New("database max_conns must be positive")
var ErrMissingTable = errors.New("database table is required")
var ErrMissingHTTPAddr = errors.New("server http_addr is required")

// Config represents the complete book service configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DatabaseConfig holds the connection parameters of the relational store.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Driver   string `yaml:"driver"`
	Table    string `yaml:"table"`
	MaxConns int    `yaml:"max_conns"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	ShutdownTimeoutRaw string `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig holds the OpenTelemetry export configuration.
// An empty endpoint disables the export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns a Config with all defaults applied and no database URL.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:   defaultDriver,
			Table:    defaultTable,
			MaxConns: defaultMaxConns,
		},
		Server: ServerConfig{
			HTTPAddr:        defaultHTTPAddr,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path and the environment.
// Environment variables in the format ${VAR_NAME} inside the YAML file are expanded.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.Database.Driver = normalizeDriver(cfg.Database.Driver)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads the given .env files (default: ./.env) into the process environment.
// Missing files are not an error, variables already set in the environment are not overridden.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	existing := make([]string, 0, len(filenames))
	for _, filename := range filenames {
		if _, err := os.Stat(filename); err == nil {
			existing = append(existing, filename)
		}
	}

	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnv overlays all environment variables that are set.
func (c *Config) applyEnv() error {
	setFromEnv(&c.Database.URL, EnvDatabaseURL)
	setFromEnv(&c.Database.Username, EnvDatabaseUsername)
	setFromEnv(&c.Database.Password, EnvDatabasePassword)
	setFromEnv(&c.Database.Driver, EnvDatabaseDriver)
	setFromEnv(&c.Database.Table, EnvDatabaseTable)
	setFromEnv(&c.Server.HTTPAddr, EnvHTTPAddr)
	setFromEnv(&c.Server.ShutdownTimeoutRaw, EnvShutdownTimeout)
	setFromEnv(&c.Logging.Level, EnvLogLevel)
	setFromEnv(&c.Logging.Format, EnvLogFormat)
	setFromEnv(&c.Telemetry.OTLPEndpoint, EnvOTLPEndpoint)

	if raw, ok := os.LookupEnv(EnvDatabaseMaxConns); ok && strings.TrimSpace(raw) != "" {
		maxConns, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvDatabaseMaxConns, raw, err)
		}
		c.Database.MaxConns = maxConns
	}

	return nil
}

// normalizeDriver maps driver aliases onto the supported identifiers.
// Unknown values are returned lower-cased and are rejected by Validate.
func normalizeDriver(driver string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(driver)); normalized {
	case "", "pgx/v5", "pgxpool":
		return DriverPGX
	case "pq", "lib/pq", "postgresql", "org.postgresql.driver":
		return DriverPostgres
	default:
		return normalized
	}
}

func setFromEnv(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok {
		*target = value
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Server.ShutdownTimeoutRaw == "" {
		return nil
	}

	timeout, err := time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
	}
	cfg.Server.ShutdownTimeout = timeout

	return nil
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return ErrMissingDatabaseURL
	}

	switch c.Database.Driver {
	case DriverPGX, DriverPostgres, DriverSQLX:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Database.Driver)
	}

	if c.Database.Table == "" {
		return ErrMissingTable
	}

	if c.Database.MaxConns <= 0 {
		return ErrInvalidMaxConns
	}

	if _, err := c.Database.DSN(); err != nil {
		return err
	}

	if c.Server.HTTPAddr == "" {
		return ErrMissingHTTPAddr
	}

	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}
