// Package snowflake provides the Snowflake data warehouse adapter.
package snowflake

import (
	"database/sql"
	"fmt"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/rowguard-labs/rowguard/internal/adapters"
)

// AdapterConfig configures the Snowflake adapter.
type AdapterConfig struct {
	// Account is the Snowflake account identifier.
	Account string

	// User is the Snowflake username.
	User string

	// Password for basic auth.
	Password string

	// Database is the default database.
	Database string

	// Schema is the default schema.
	Schema string

	// Warehouse is the compute warehouse.
	Warehouse string

	// Role is the Snowflake role.
	Role string
}

// Validate validates the configuration.
func (c AdapterConfig) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("snowflake adapter: account is required")
	}
	if c.User == "" {
		return fmt.Errorf("snowflake adapter: user is required")
	}
	return nil
}

// Adapter implements the engine adapter interface for Snowflake.
type Adapter struct {
	*adapters.DB
}

// NewAdapter creates a Snowflake adapter with the given configuration.
func NewAdapter(config AdapterConfig) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dsn, err := sf.DSN(&sf.Config{
		Account:   config.Account,
		User:      config.User,
		Password:  config.Password,
		Database:  config.Database,
		Schema:    config.Schema,
		Warehouse: config.Warehouse,
		Role:      config.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("snowflake adapter: DSN build failed: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("snowflake adapter: open failed: %w", err)
	}

	return &Adapter{DB: adapters.NewDB("snowflake", db)}, nil
}
