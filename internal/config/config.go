// Package config loads compgraph settings from a YAML file, a .env file and
// COMPGRAPH_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidMaxFiles  = errors.New("analysis max_files must not be negative")
	ErrInvalidWorkers   = errors.New("analysis workers must not be negative")
	ErrInvalidCacheSize = errors.New("analysis cache_size must not be negative")
	ErrInvalidLogLevel  = errors.New("invalid logging level")
	ErrInvalidLogFormat = errors.New("invalid logging format")
	ErrEmptyExtension   = errors.New("analysis extensions must not contain empty entries")
)

// Default configuration values.
const (
	DefaultConfigName   = ".compgraph"
	DefaultDatabasePath = ".compgraph/graph.db"
	DefaultMaxFiles     = 200
	DefaultCacheSize    = 1024
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
	DefaultNeo4jURI     = "neo4j://localhost:7687"
	DefaultNeo4jUser    = "neo4j"
	envPrefix           = "COMPGRAPH"
)

// Config holds all configuration for compgraph.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
}

// AnalysisConfig holds analysis settings.
type AnalysisConfig struct {
	Aliases    []string `mapstructure:"aliases"`
	Extensions []string `mapstructure:"extensions"`
	MaxFiles   int      `mapstructure:"max_files"`
	Workers    int      `mapstructure:"workers"`
	Parallel   bool     `mapstructure:"parallel"`
	CacheSize  int      `mapstructure:"cache_size"`
}

// DatabaseConfig holds the run store location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Neo4jConfig holds the Neo4j export target.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Load reads configuration. A non-empty configPath must exist; otherwise
// .compgraph.yaml is looked up in the working directory and in searchDirs.
// A .env file in the working directory is loaded into the environment
// first when present.
func Load(configPath string, searchDirs ...string) (*Config, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		for _, dir := range searchDirs {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Analysis defaults.
	v.SetDefault("analysis.aliases", []string{"@/"})
	v.SetDefault("analysis.extensions", []string{".js", ".jsx", ".ts", ".tsx"})
	v.SetDefault("analysis.max_files", DefaultMaxFiles)
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("analysis.parallel", true)
	v.SetDefault("analysis.cache_size", DefaultCacheSize)

	// Database defaults.
	v.SetDefault("database.path", DefaultDatabasePath)

	// Logging defaults.
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	// Neo4j defaults.
	v.SetDefault("neo4j.uri", DefaultNeo4jURI)
	v.SetDefault("neo4j.user", DefaultNeo4jUser)
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Analysis.MaxFiles < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxFiles, c.Analysis.MaxFiles)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Analysis.Workers)
	}
	if c.Analysis.CacheSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.Analysis.CacheSize)
	}
	for _, ext := range c.Analysis.Extensions {
		if strings.TrimSpace(ext) == "" {
			return ErrEmptyExtension
		}
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}
	return nil
}

// ParseLevel maps debug, info, warn (or warning) and error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
}
