// Package config provides configuration loading and management for the registry server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/cmdb-registry-server/internal/telemetry"
)

// EnvPrefix is the prefix of environment variables read by the server
const EnvPrefix = "CMDB_REGISTRY"

// DatabasePasswordEnv is the environment variable holding the database password
const DatabasePasswordEnv = "CMDB_DATABASE_PASSWORD"

const (
	// LockTypeMemory keeps locks in process memory
	LockTypeMemory = "memory"

	// LockTypeFile uses advisory file locks under lock.rootPath
	LockTypeFile = "file"

	// LockTypePostgres uses rows of the registry_locks table
	LockTypePostgres = "postgres"
)

const (
	// StoreTypeMemory keeps documents in process memory
	StoreTypeMemory = "memory"

	// StoreTypeElasticsearch uses an Elasticsearch cluster
	StoreTypeElasticsearch = "elasticsearch"

	// StoreTypePostgres uses jsonb documents in PostgreSQL
	StoreTypePostgres = "postgres"
)

const (
	defaultRootPath       = "/cmdb"
	defaultAcquireTimeout = 5 * time.Second
	defaultReleaseTimeout = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultMaxRetries     = 3
	defaultESEndpoint     = "http://localhost:9200"
)

// DefaultConfigPaths are searched in order when no configuration path is given
var DefaultConfigPaths = []string{
	"/etc/cmdb/config.yaml",
	"config.yaml",
}

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// WithDefaultPaths loads configuration from the first existing file of
// DefaultConfigPaths. When none exists the built-in defaults are used.
func WithDefaultPaths() Option {
	return withSearchPaths(DefaultConfigPaths)
}

func withSearchPaths(paths []string) Option {
	return func(cfg *loaderConfig) error {
		for _, p := range paths {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			return WithConfigPath(p)(cfg)
		}
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Lock      LockConfig        `yaml:"lock"`
	Store     StoreConfig       `yaml:"store"`
	Database  *DatabaseConfig   `yaml:"database,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// LockConfig defines the lock service guarding mutations
type LockConfig struct {
	// Type is the lock backend: memory, file or postgres. Defaults to memory.
	Type string `yaml:"type,omitempty"`

	// RootPath is the lock path prefix; for the file backend it is also the
	// directory holding the lock files
	RootPath string `yaml:"rootPath,omitempty"`

	// AcquireTimeout bounds a single acquisition (e.g., "5s")
	AcquireTimeout string `yaml:"acquireTimeout,omitempty"`

	// ReleaseTimeout bounds a single release (e.g., "5s")
	ReleaseTimeout string `yaml:"releaseTimeout,omitempty"`

	// StaleAfter expires postgres lock rows older than this duration.
	// Unset or zero keeps rows until released.
	StaleAfter string `yaml:"staleAfter,omitempty"`
}

// StoreConfig defines the indexed document store
type StoreConfig struct {
	// Type is the store backend: memory, elasticsearch or postgres. Defaults to memory.
	Type string `yaml:"type,omitempty"`

	// RequestTimeout bounds every store call (e.g., "10s")
	RequestTimeout string `yaml:"requestTimeout,omitempty"`

	// SchemaCacheTTL enables the read-through schema cache when positive
	SchemaCacheTTL string `yaml:"schemaCacheTTL,omitempty"`

	// Elasticsearch holds settings of the elasticsearch backend
	Elasticsearch *ElasticsearchConfig `yaml:"elasticsearch,omitempty"`
}

// ElasticsearchConfig defines the connection to an Elasticsearch cluster
type ElasticsearchConfig struct {
	// Endpoint is the base URL of the cluster
	Endpoint string `yaml:"endpoint"`

	// MaxRetries is the number of retries of transient failures
	MaxRetries *uint `yaml:"maxRetries,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from CMDB_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(DatabasePasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", DatabasePasswordEnv,
	)
}

// GetConnectionString builds a PostgreSQL connection URL with the password escaped
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String(), nil
}

// GetConnMaxLifetime returns the parsed connection lifetime, or zero when unset
func (d *DatabaseConfig) GetConnMaxLifetime() time.Duration {
	dur, _ := parseDuration(d.ConnMaxLifetime, 0)
	return dur
}

// LoadConfig loads and parses configuration from a YAML file. Without a
// path option the built-in defaults are returned.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetType returns the lock backend, using memory if not specified
func (l *LockConfig) GetType() string {
	if l.Type == "" {
		return LockTypeMemory
	}
	return l.Type
}

// GetRootPath returns the lock path prefix, using /cmdb if not specified
func (l *LockConfig) GetRootPath() string {
	if l.RootPath == "" {
		return defaultRootPath
	}
	return l.RootPath
}

// GetAcquireTimeout returns the acquisition bound, defaulting to 5s
func (l *LockConfig) GetAcquireTimeout() time.Duration {
	d, _ := parseDuration(l.AcquireTimeout, defaultAcquireTimeout)
	return d
}

// GetReleaseTimeout returns the release bound, defaulting to 5s
func (l *LockConfig) GetReleaseTimeout() time.Duration {
	d, _ := parseDuration(l.ReleaseTimeout, defaultReleaseTimeout)
	return d
}

// GetStaleAfter returns the postgres lock expiry, or zero when disabled
func (l *LockConfig) GetStaleAfter() time.Duration {
	d, _ := parseDuration(l.StaleAfter, 0)
	return d
}

// GetType returns the store backend, using memory if not specified
func (s *StoreConfig) GetType() string {
	if s.Type == "" {
		return StoreTypeMemory
	}
	return s.Type
}

// GetRequestTimeout returns the bound of a single store call, defaulting to 10s
func (s *StoreConfig) GetRequestTimeout() time.Duration {
	d, _ := parseDuration(s.RequestTimeout, defaultRequestTimeout)
	return d
}

// GetSchemaCacheTTL returns the schema cache lifetime, or zero when disabled
func (s *StoreConfig) GetSchemaCacheTTL() time.Duration {
	d, _ := parseDuration(s.SchemaCacheTTL, 0)
	return d
}

// GetEndpoint returns the cluster URL, using http://localhost:9200 if not specified
func (e *ElasticsearchConfig) GetEndpoint() string {
	if e == nil || e.Endpoint == "" {
		return defaultESEndpoint
	}
	return e.Endpoint
}

// GetMaxRetries returns the retry count of transient failures, defaulting to 3
func (e *ElasticsearchConfig) GetMaxRetries() uint {
	if e == nil || e.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *e.MaxRetries
}

// RequiresDatabase reports whether a configured backend stores its state in PostgreSQL
func (c *Config) RequiresDatabase() bool {
	return c.Lock.GetType() == LockTypePostgres || c.Store.GetType() == StoreTypePostgres
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error

	switch c.Lock.GetType() {
	case LockTypeMemory, LockTypeFile, LockTypePostgres:
	default:
		errs = append(errs, fmt.Errorf("lock.type: unsupported lock type %q", c.Lock.Type))
	}
	errs = append(errs,
		validateDuration("lock.acquireTimeout", c.Lock.AcquireTimeout),
		validateDuration("lock.releaseTimeout", c.Lock.ReleaseTimeout),
		validateDuration("lock.staleAfter", c.Lock.StaleAfter),
	)

	switch c.Store.GetType() {
	case StoreTypeMemory, StoreTypePostgres:
	case StoreTypeElasticsearch:
		errs = append(errs, validateElasticsearch(c.Store.Elasticsearch))
	default:
		errs = append(errs, fmt.Errorf("store.type: unsupported store type %q", c.Store.Type))
	}
	errs = append(errs,
		validateDuration("store.requestTimeout", c.Store.RequestTimeout),
		validateDuration("store.schemaCacheTTL", c.Store.SchemaCacheTTL),
	)

	if c.RequiresDatabase() {
		errs = append(errs, validateDatabase(c.Database))
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
	}

	return errors.Join(errs...)
}

func validateElasticsearch(es *ElasticsearchConfig) error {
	if es == nil || es.Endpoint == "" {
		return nil
	}
	u, err := url.Parse(es.Endpoint)
	if err != nil {
		return fmt.Errorf("store.elasticsearch.endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("store.elasticsearch.endpoint: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("store.elasticsearch.endpoint: host is required")
	}
	return nil
}

func validateDatabase(db *DatabaseConfig) error {
	if db == nil {
		return fmt.Errorf("database: configuration is required by the postgres lock or store")
	}

	var errs []error
	if db.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if db.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port is required"))
	}
	if db.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}
	if db.Database == "" {
		errs = append(errs, fmt.Errorf("database.database is required"))
	}
	errs = append(errs, validateDuration("database.connMaxLifetime", db.ConnMaxLifetime))
	return errors.Join(errs...)
}

func validateDuration(field, value string) error {
	if _, err := parseDuration(value, 0); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	if d < 0 {
		return fallback, fmt.Errorf("duration %q must not be negative", value)
	}
	return d, nil
}
