// Package config provides configuration loading for the rowguard CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	// Guard configuration for the sentinel tripwire
	Guard GuardConfig `mapstructure:"guard"`

	// Database configuration (relation registry and query log)
	Database DatabaseConfig `mapstructure:"database"`

	// Engines configuration
	Engines EnginesConfig `mapstructure:"engines"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// GuardConfig holds the sentinel tripwire configuration. The values are
// read once at session start; a running session never observes changes.
type GuardConfig struct {
	// Relation is the numeric relation identifier to watch. Zero disarms
	// the guard.
	Relation uint32 `mapstructure:"relation"`

	// RelationName optionally names the watched relation; it is resolved
	// to an identifier through the registry when Relation is zero.
	RelationName string `mapstructure:"relation_name"`

	// Column is the 1-based ordinal of the column to inspect. Zero
	// disarms the guard.
	Column int `mapstructure:"column"`

	// Sentinel is the value whose prefix marks a planted row.
	Sentinel string `mapstructure:"sentinel"`

	// AbortStatementOnly limits the abort to the current statement.
	// When false a match terminates the whole session.
	AbortStatementOnly bool `mapstructure:"abort_statement_only"`
}

// DatabaseConfig holds PostgreSQL configuration. When disabled the relation
// registry lives in memory and the query log goes to stderr only.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// EnginesConfig holds engine configurations.
type EnginesConfig struct {
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	DuckDB    DuckDBConfig    `mapstructure:"duckdb"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Trino     TrinoConfig     `mapstructure:"trino"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake"`
	BigQuery  BigQueryConfig  `mapstructure:"bigquery"`
}

// SQLiteConfig holds SQLite configuration.
type SQLiteConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"database"`
}

// DuckDBConfig holds DuckDB configuration.
type DuckDBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"database"`
}

// PostgresConfig holds the PostgreSQL engine configuration. It reuses the
// registry database by default.
type PostgresConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// TrinoConfig holds Trino configuration.
type TrinoConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Catalog string `mapstructure:"catalog"`
	Schema  string `mapstructure:"schema"`
	User    string `mapstructure:"user"`
	SSL     bool   `mapstructure:"ssl"`
}

// SnowflakeConfig holds Snowflake configuration.
type SnowflakeConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Account   string `mapstructure:"account"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	Schema    string `mapstructure:"schema"`
	Warehouse string `mapstructure:"warehouse"`
	Role      string `mapstructure:"role"`
}

// BigQueryConfig holds BigQuery configuration.
type BigQueryConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ProjectID       string `mapstructure:"project_id"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	Location        string `mapstructure:"location"`
	DefaultDataset  string `mapstructure:"default_dataset"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Persist bool   `mapstructure:"persist"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Guard: GuardConfig{
			Relation:           0,
			RelationName:       "",
			Column:             0,
			Sentinel:           "SENTINEL",
			AbortStatementOnly: false,
		},
		Database: DatabaseConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			User:     "rowguard",
			Password: "rowguard_dev",
			Name:     "rowguard",
			SSLMode:  "disable",
		},
		Engines: EnginesConfig{
			SQLite: SQLiteConfig{
				Enabled:  true,
				Database: ":memory:",
			},
			DuckDB: DuckDBConfig{
				Enabled:  false,
				Database: ":memory:",
			},
			Postgres: PostgresConfig{
				Enabled: false,
			},
			Trino: TrinoConfig{
				Enabled: false,
				Host:    "localhost",
				Port:    8080,
				Catalog: "hive",
				Schema:  "default",
				User:    "rowguard",
			},
			Snowflake: SnowflakeConfig{
				Enabled: false,
			},
			BigQuery: BigQueryConfig{
				Enabled: false,
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "json",
			Persist: false,
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".rowguard"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("ROWGUARD")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Unmarshal
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Guard.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks guard settings for internal consistency.
func (g GuardConfig) Validate() error {
	if g.Column < 0 {
		return fmt.Errorf("guard.column must not be negative")
	}
	if g.Relation != 0 && g.RelationName != "" {
		return fmt.Errorf("guard.relation and guard.relation_name are mutually exclusive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("guard.relation", 0)
	v.SetDefault("guard.relation_name", "")
	v.SetDefault("guard.column", 0)
	v.SetDefault("guard.sentinel", "SENTINEL")
	v.SetDefault("guard.abort_statement_only", false)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "rowguard")
	v.SetDefault("database.password", "rowguard_dev")
	v.SetDefault("database.name", "rowguard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("engines.sqlite.enabled", true)
	v.SetDefault("engines.sqlite.database", ":memory:")
	v.SetDefault("engines.duckdb.enabled", false)
	v.SetDefault("engines.duckdb.database", ":memory:")
	v.SetDefault("engines.postgres.enabled", false)
	v.SetDefault("engines.trino.enabled", false)
	v.SetDefault("engines.snowflake.enabled", false)
	v.SetDefault("engines.bigquery.enabled", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.persist", false)
}
