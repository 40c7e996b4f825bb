// Package trino provides the Trino engine adapter.
package trino

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/rowguard-labs/rowguard/internal/adapters"

	_ "github.com/trinodb/trino-go-client/trino" // Trino driver
)

// AdapterConfig configures the Trino adapter.
type AdapterConfig struct {
	// Host is the Trino coordinator hostname.
	Host string

	// Port is the Trino coordinator port. Default: 8080.
	Port int

	// Catalog is the default Trino catalog.
	Catalog string

	// Schema is the default Trino schema.
	Schema string

	// User is the Trino user for queries. Default: "rowguard".
	User string

	// SSL enables https towards the coordinator.
	SSL bool
}

// Validate validates the configuration.
func (c AdapterConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("trino adapter: host is required")
	}
	return nil
}

// dsn builds the trino-go-client connection string.
func (c AdapterConfig) dsn() string {
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	user := c.User
	if user == "" {
		user = "rowguard"
	}
	port := c.Port
	if port == 0 {
		port = 8080
	}

	u := url.URL{
		Scheme: scheme,
		User:   url.User(user),
		Host:   fmt.Sprintf("%s:%d", c.Host, port),
	}
	q := u.Query()
	if c.Catalog != "" {
		q.Set("catalog", c.Catalog)
	}
	if c.Schema != "" {
		q.Set("schema", c.Schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Adapter implements the engine adapter interface for Trino.
type Adapter struct {
	*adapters.DB
}

// NewAdapter creates a Trino adapter with the given configuration.
func NewAdapter(config AdapterConfig) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("trino", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("trino adapter: open failed: %w", err)
	}

	return &Adapter{DB: adapters.NewDB("trino", db)}, nil
}
