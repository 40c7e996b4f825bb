// Package bigquery provides the Google BigQuery data warehouse adapter.
// Unlike the SQL-speaking adapters it streams through the native SDK row
// iterator instead of database/sql.
package bigquery

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/rowguard-labs/rowguard/internal/engine"
	"github.com/rowguard-labs/rowguard/internal/guard"
)

// Config configures the BigQuery adapter.
type Config struct {
	// ProjectID is the GCP project ID.
	ProjectID string

	// CredentialsJSON is the service account key (optional if using ADC).
	CredentialsJSON string

	// Location is the BigQuery region (e.g., "US", "EU").
	Location string

	// DefaultDataset is the default dataset for unqualified tables.
	DefaultDataset string
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("bigquery adapter: project_id is required")
	}
	return nil
}

// Adapter implements the engine adapter interface for BigQuery.
type Adapter struct {
	mu     sync.RWMutex
	config Config
	client *bigquery.Client
	closed bool
}

// NewAdapter creates a BigQuery adapter. Without explicit credentials the
// SDK falls back to Application Default Credentials.
func NewAdapter(ctx context.Context, config Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if config.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(config.CredentialsJSON)))
	}

	client, err := bigquery.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery adapter: failed to create client: %w", err)
	}

	return &Adapter{config: config, client: client}, nil
}

// Name returns the engine name.
func (a *Adapter) Name() string { return "bigquery" }

func (a *Adapter) activeClient() (*bigquery.Client, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.client == nil {
		return nil, fmt.Errorf("bigquery adapter: client is closed")
	}
	return a.client, nil
}

// Scan runs a read statement and exposes the SDK row iterator as a plan
// node.
func (a *Adapter) Scan(ctx context.Context, query string, relation guard.RelationID) (engine.PlanNode, *engine.RowSchema, error) {
	client, err := a.activeClient()
	if err != nil {
		return nil, nil, err
	}

	q := client.Query(query)
	if a.config.DefaultDataset != "" {
		q.DefaultDatasetID = a.config.DefaultDataset
	}
	if a.config.Location != "" {
		q.Location = a.config.Location
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("bigquery adapter: query failed: %w", err)
	}

	// The iterator's schema is populated by the first Next call, so pull
	// one row eagerly and hand it back through the plan.
	plan := &rowIteratorPlan{it: it, relation: relation}
	var first []bigquery.Value
	switch err := it.Next(&first); err {
	case nil:
		plan.buffered = first
	case iterator.Done:
		plan.done = true
	default:
		return nil, nil, fmt.Errorf("bigquery adapter: failed to read row: %w", err)
	}

	schema := &engine.RowSchema{Columns: make([]engine.ColumnDef, len(it.Schema))}
	for i, field := range it.Schema {
		schema.Columns[i] = engine.ColumnDef{Name: field.Name, Type: string(field.Type)}
	}
	return plan, schema, nil
}

// Exec runs a write statement through a query job.
func (a *Adapter) Exec(ctx context.Context, query string) (int64, error) {
	client, err := a.activeClient()
	if err != nil {
		return 0, err
	}

	q := client.Query(query)
	if a.config.DefaultDataset != "" {
		q.DefaultDatasetID = a.config.DefaultDataset
	}
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("bigquery adapter: exec failed: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("bigquery adapter: job wait failed: %w", err)
	}
	if status.Err() != nil {
		return 0, fmt.Errorf("bigquery adapter: job failed: %w", status.Err())
	}
	return 0, nil
}

// Ping verifies the project is reachable with a trivial query.
func (a *Adapter) Ping(ctx context.Context) error {
	client, err := a.activeClient()
	if err != nil {
		return err
	}
	it, err := client.Query("SELECT 1").Read(ctx)
	if err != nil {
		return fmt.Errorf("bigquery adapter: ping failed: %w", err)
	}
	var row []bigquery.Value
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return fmt.Errorf("bigquery adapter: ping failed: %w", err)
	}
	return nil
}

// Close releases the client. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// rowIteratorPlan adapts a BigQuery row iterator to the executor's plan
// interface.
type rowIteratorPlan struct {
	it       *bigquery.RowIterator
	relation guard.RelationID
	buffered []bigquery.Value
	done     bool
}

// Next returns the next row, or nil once the iterator is drained.
func (p *rowIteratorPlan) Next(ctx context.Context) (*engine.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.buffered != nil {
		row := toRow(p.buffered, p.relation)
		p.buffered = nil
		return row, nil
	}
	if p.done {
		return nil, nil
	}

	var values []bigquery.Value
	switch err := p.it.Next(&values); err {
	case nil:
		return toRow(values, p.relation), nil
	case iterator.Done:
		p.done = true
		return nil, nil
	default:
		return nil, fmt.Errorf("bigquery adapter: failed to read row: %w", err)
	}
}

// Shutdown marks the plan drained; the SDK iterator holds no resources that
// outlive its job.
func (p *rowIteratorPlan) Shutdown() error {
	p.done = true
	p.buffered = nil
	return nil
}

func toRow(values []bigquery.Value, relation guard.RelationID) *engine.Row {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return &engine.Row{Relation: relation, Values: out}
}
