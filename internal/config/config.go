// Package config loads scout configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete scout configuration.
type Config struct {
	Version       int                 `yaml:"version" json:"version"`
	Search        SearchConfig        `yaml:"search" json:"search"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch" json:"elasticsearch"`
	Bleve         BleveConfig         `yaml:"bleve" json:"bleve"`
	Repository    RepositoryConfig    `yaml:"repository" json:"repository"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
}

// SearchConfig selects the search driver.
type SearchConfig struct {
	// Driver is the default driver name: "elasticsearch", "bleve" or "null".
	// Empty resolves to the null driver.
	Driver string `yaml:"driver" json:"driver"`

	// PerPage is the default page size for paginated searches.
	PerPage int `yaml:"per_page" json:"per_page"`
}

// ElasticsearchConfig configures the elasticsearch driver.
type ElasticsearchConfig struct {
	Addresses []string `yaml:"addresses" json:"addresses"`
	Username  string   `yaml:"username" json:"username"`
	Password  string   `yaml:"password" json:"password"`
	APIKey    string   `yaml:"api_key" json:"api_key"`
	CloudID   string   `yaml:"cloud_id" json:"cloud_id"`

	// Index is the index every record is written to and searched in,
	// unless a search names another one.
	Index string `yaml:"index" json:"index"`

	// MappingTypes emits _type in bulk headers. Only clusters older than
	// 7.0 accept it.
	MappingTypes bool `yaml:"mapping_types" json:"mapping_types"`

	// Scope is a set of field/value pairs every search must match, e.g. a
	// tenant id.
	Scope map[string]string `yaml:"scope" json:"scope"`
}

// BleveConfig configures the local bleve driver.
type BleveConfig struct {
	// Path is the on-disk index directory. Empty keeps the index in memory.
	Path string `yaml:"path" json:"path"`
}

// RepositoryConfig configures the SQL record repository.
type RepositoryConfig struct {
	// Driver is the database/sql driver: "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
	Table  string `yaml:"table" json:"table"`
	Key    string `yaml:"key" json:"key"`

	// ColumnCacheSize bounds the number of cached column types.
	ColumnCacheSize int `yaml:"column_cache_size" json:"column_cache_size"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
	// Quiet disables the stderr copy of the log.
	Quiet bool `yaml:"quiet" json:"quiet"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			Driver:  "",
			PerPage: 15,
		},
		Elasticsearch: ElasticsearchConfig{
			Addresses: []string{"http://localhost:9200"},
			Index:     "scout",
		},
		Bleve: BleveConfig{
			Path: filepath.Join(".scout", "index.bleve"),
		},
		Repository: RepositoryConfig{
			Driver:          "sqlite",
			DSN:             "scout.db",
			Table:           "records",
			Key:             "id",
			ColumnCacheSize: 256,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file:
//   - $XDG_CONFIG_HOME/scout/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/scout/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scout", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "scout", "config.yaml")
	}
	return filepath.Join(home, ".config", "scout", "config.yaml")
}

// Load loads configuration for the project in dir. Sources, in increasing
// precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/scout/config.yaml)
//  3. Project config (.scout.yaml in dir)
//  4. Environment variables (SCOUT_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromFile loads .scout.yaml or, failing that, .scout.yml.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".scout.yaml", ".scout.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML parses path and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Search.Driver != "" {
		c.Search.Driver = other.Search.Driver
	}
	if other.Search.PerPage != 0 {
		c.Search.PerPage = other.Search.PerPage
	}

	es := other.Elasticsearch
	if len(es.Addresses) > 0 {
		c.Elasticsearch.Addresses = es.Addresses
	}
	if es.Username != "" {
		c.Elasticsearch.Username = es.Username
	}
	if es.Password != "" {
		c.Elasticsearch.Password = es.Password
	}
	if es.APIKey != "" {
		c.Elasticsearch.APIKey = es.APIKey
	}
	if es.CloudID != "" {
		c.Elasticsearch.CloudID = es.CloudID
	}
	if es.Index != "" {
		c.Elasticsearch.Index = es.Index
	}
	if es.MappingTypes {
		c.Elasticsearch.MappingTypes = true
	}
	if len(es.Scope) > 0 {
		if c.Elasticsearch.Scope == nil {
			c.Elasticsearch.Scope = make(map[string]string, len(es.Scope))
		}
		for k, v := range es.Scope {
			c.Elasticsearch.Scope[k] = v
		}
	}

	if other.Bleve.Path != "" {
		c.Bleve.Path = other.Bleve.Path
	}

	repo := other.Repository
	if repo.Driver != "" {
		c.Repository.Driver = repo.Driver
	}
	if repo.DSN != "" {
		c.Repository.DSN = repo.DSN
	}
	if repo.Table != "" {
		c.Repository.Table = repo.Table
	}
	if repo.Key != "" {
		c.Repository.Key = repo.Key
	}
	if repo.ColumnCacheSize != 0 {
		c.Repository.ColumnCacheSize = repo.ColumnCacheSize
	}

	lg := other.Logging
	if lg.Level != "" {
		c.Logging.Level = lg.Level
	}
	if lg.File != "" {
		c.Logging.File = lg.File
	}
	if lg.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = lg.MaxSizeMB
	}
	if lg.MaxFiles != 0 {
		c.Logging.MaxFiles = lg.MaxFiles
	}
	if lg.Quiet {
		c.Logging.Quiet = true
	}
}

// applyEnvOverrides applies SCOUT_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("SCOUT_DRIVER"); ok {
		c.Search.Driver = strings.TrimSpace(v)
	}
	if v := os.Getenv("SCOUT_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.PerPage = n
		}
	}

	if v := os.Getenv("SCOUT_ELASTICSEARCH_ADDRESSES"); v != "" {
		c.Elasticsearch.Addresses = splitList(v)
	}
	if v := os.Getenv("SCOUT_ELASTICSEARCH_USERNAME"); v != "" {
		c.Elasticsearch.Username = v
	}
	if v := os.Getenv("SCOUT_ELASTICSEARCH_PASSWORD"); v != "" {
		c.Elasticsearch.Password = v
	}
	if v := os.Getenv("SCOUT_ELASTICSEARCH_API_KEY"); v != "" {
		c.Elasticsearch.APIKey = v
	}
	if v := os.Getenv("SCOUT_ELASTICSEARCH_CLOUD_ID"); v != "" {
		c.Elasticsearch.CloudID = v
	}
	if v := os.Getenv("SCOUT_ELASTICSEARCH_INDEX"); v != "" {
		c.Elasticsearch.Index = v
	}

	if v := os.Getenv("SCOUT_BLEVE_PATH"); v != "" {
		c.Bleve.Path = v
	}

	if v := os.Getenv("SCOUT_REPOSITORY_DRIVER"); v != "" {
		c.Repository.Driver = v
	}
	if v := os.Getenv("SCOUT_REPOSITORY_DSN"); v != "" {
		c.Repository.DSN = v
	}
	if v := os.Getenv("SCOUT_REPOSITORY_TABLE"); v != "" {
		c.Repository.Table = v
	}
	if v := os.Getenv("SCOUT_REPOSITORY_KEY"); v != "" {
		c.Repository.Key = v
	}

	if v := os.Getenv("SCOUT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SCOUT_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Search.PerPage < 0 {
		return fmt.Errorf("search.per_page must be non-negative, got %d", c.Search.PerPage)
	}

	if strings.EqualFold(c.Search.Driver, "elasticsearch") {
		if len(c.Elasticsearch.Addresses) == 0 && c.Elasticsearch.CloudID == "" {
			return fmt.Errorf("elasticsearch.addresses or elasticsearch.cloud_id is required for the elasticsearch driver")
		}
		if c.Elasticsearch.Index == "" {
			return fmt.Errorf("elasticsearch.index is required for the elasticsearch driver")
		}
	}

	validSQLDrivers := map[string]bool{"sqlite": true, "sqlite3": true}
	if !validSQLDrivers[c.Repository.Driver] {
		return fmt.Errorf("repository.driver must be 'sqlite' or 'sqlite3', got %s", c.Repository.Driver)
	}
	if c.Repository.ColumnCacheSize < 0 {
		return fmt.Errorf("repository.column_cache_size must be non-negative, got %d", c.Repository.ColumnCacheSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// Redacted returns a copy of c with credentials masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Elasticsearch.Addresses = append([]string(nil), c.Elasticsearch.Addresses...)
	if out.Elasticsearch.Password != "" {
		out.Elasticsearch.Password = "********"
	}
	if out.Elasticsearch.APIKey != "" {
		out.Elasticsearch.APIKey = "********"
	}
	return &out
}

// WriteYAML writes c as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
