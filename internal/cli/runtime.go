package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/rowguard-labs/rowguard/internal/adapters"
	"github.com/rowguard-labs/rowguard/internal/adapters/bigquery"
	"github.com/rowguard-labs/rowguard/internal/adapters/duckdb"
	pgadapter "github.com/rowguard-labs/rowguard/internal/adapters/postgres"
	"github.com/rowguard-labs/rowguard/internal/adapters/snowflake"
	"github.com/rowguard-labs/rowguard/internal/adapters/sqlite"
	"github.com/rowguard-labs/rowguard/internal/adapters/trino"
	"github.com/rowguard-labs/rowguard/internal/config"
	"github.com/rowguard-labs/rowguard/internal/engine"
	"github.com/rowguard-labs/rowguard/internal/errors"
	"github.com/rowguard-labs/rowguard/internal/guard"
	"github.com/rowguard-labs/rowguard/internal/observability"
	"github.com/rowguard-labs/rowguard/internal/session"
	"github.com/rowguard-labs/rowguard/internal/storage"
)

// Runtime is the process-wide wiring built from configuration: one adapter
// registry, one relation registry, one immutable rule, one executor. It is
// assembled once per invocation and torn down at exit.
type Runtime struct {
	Engines   *adapters.Registry
	Relations storage.RelationRegistry
	Rule      *guard.Rule
	Executor  *engine.Executor
	Logger    observability.QueryLogger

	db *sql.DB
}

// NewRuntime builds the runtime from loaded configuration. The guard rule
// is fixed here; nothing rebinds it for the life of the process.
func NewRuntime(cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{
		Engines: adapters.NewRegistry(),
	}

	if err := rt.openRegistry(cfg); err != nil {
		return nil, err
	}
	if err := rt.openEngines(cfg); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.buildLogger(cfg); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.buildRule(cfg); err != nil {
		rt.Close()
		return nil, err
	}

	rt.Executor = engine.New(rt.Rule)
	return rt, nil
}

func (rt *Runtime) openRegistry(cfg *config.Config) error {
	if !cfg.Database.Enabled {
		rt.Relations = storage.NewMemoryRegistry()
		return nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open registry database: %w", err)
	}
	rt.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := storage.NewMigrationRunner(db).Run(ctx); err != nil {
		return err
	}
	rt.Relations = storage.NewPostgresRegistry(db)
	return nil
}

func (rt *Runtime) openEngines(cfg *config.Config) error {
	if cfg.Engines.SQLite.Enabled {
		a, err := sqlite.NewAdapterWithConfig(sqlite.AdapterConfig{
			DatabasePath: cfg.Engines.SQLite.Database,
		})
		if err != nil {
			return err
		}
		rt.Engines.Register(a)
	}

	if cfg.Engines.DuckDB.Enabled {
		a, err := duckdb.NewAdapterWithConfig(duckdb.AdapterConfig{
			DatabasePath: cfg.Engines.DuckDB.Database,
		})
		if err != nil {
			return err
		}
		rt.Engines.Register(a)
	}

	if cfg.Engines.Postgres.Enabled {
		dsn := cfg.Engines.Postgres.DSN
		if dsn == "" {
			dsn = cfg.Database.DSN()
		}
		a, err := pgadapter.NewAdapter(pgadapter.AdapterConfig{
			ConnectionString: dsn,
		})
		if err != nil {
			return err
		}
		rt.Engines.Register(a)
	}

	if cfg.Engines.Trino.Enabled {
		a, err := trino.NewAdapter(trino.AdapterConfig{
			Host:    cfg.Engines.Trino.Host,
			Port:    cfg.Engines.Trino.Port,
			Catalog: cfg.Engines.Trino.Catalog,
			Schema:  cfg.Engines.Trino.Schema,
			User:    cfg.Engines.Trino.User,
			SSL:     cfg.Engines.Trino.SSL,
		})
		if err != nil {
			return err
		}
		rt.Engines.Register(a)
	}

	if cfg.Engines.Snowflake.Enabled {
		a, err := snowflake.NewAdapter(snowflake.AdapterConfig{
			Account:   cfg.Engines.Snowflake.Account,
			User:      cfg.Engines.Snowflake.User,
			Password:  cfg.Engines.Snowflake.Password,
			Database:  cfg.Engines.Snowflake.Database,
			Schema:    cfg.Engines.Snowflake.Schema,
			Warehouse: cfg.Engines.Snowflake.Warehouse,
			Role:      cfg.Engines.Snowflake.Role,
		})
		if err != nil {
			return err
		}
		rt.Engines.Register(a)
	}

	if cfg.Engines.BigQuery.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a, err := bigquery.NewAdapter(ctx, bigquery.Config{
			ProjectID:       cfg.Engines.BigQuery.ProjectID,
			CredentialsJSON: cfg.Engines.BigQuery.CredentialsJSON,
			Location:        cfg.Engines.BigQuery.Location,
			DefaultDataset:  cfg.Engines.BigQuery.DefaultDataset,
		})
		if err != nil {
			return err
		}
		rt.Engines.Register(a)
	}

	return nil
}

func (rt *Runtime) buildLogger(cfg *config.Config) error {
	if cfg.Logging.Persist {
		if rt.db == nil {
			return &errors.RowguardError{
				Code:       errors.CodeValidation,
				Message:    "persistent logging requires a database",
				Reason:     "logging.persist is set but database.enabled is not",
				Suggestion: "enable the database section or turn off logging.persist",
			}
		}
		logger, err := observability.NewPersistentLoggerWithWriter(rt.db, os.Stderr)
		if err != nil {
			return err
		}
		rt.Logger = logger
		return nil
	}
	rt.Logger = observability.NewJSONLogger(os.Stderr)
	return nil
}

// buildRule turns the guard settings into the immutable rule. A relation
// name is resolved through the registry exactly once, at startup.
func (rt *Runtime) buildRule(cfg *config.Config) error {
	g := cfg.Guard

	relation := guard.RelationID(g.Relation)
	if g.RelationName != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		id, err := rt.Relations.Resolve(ctx, g.RelationName)
		if err != nil {
			return errors.NewInvalidGuardConfig("relation_name",
				fmt.Sprintf("cannot resolve '%s': %v", g.RelationName, err))
		}
		relation = id
	}

	if relation != guard.InvalidRelation {
		if g.Column <= 0 {
			return errors.NewInvalidGuardConfig("column", "a guarded relation needs a positive 1-based column ordinal")
		}
		if g.Sentinel == "" {
			return errors.NewInvalidGuardConfig("sentinel", "a guarded relation needs a non-empty sentinel value")
		}
	}

	rt.Rule = guard.NewRule(relation, g.Column, g.Sentinel, g.AbortStatementOnly)
	return nil
}

// OpenSession opens a session on the named engine.
func (rt *Runtime) OpenSession(name string) (*session.Session, error) {
	adapter, ok := rt.Engines.Get(name)
	if !ok {
		return nil, errors.NewEngineUnavailable(name, nil)
	}
	return session.New(rt.Executor, rt.Relations, adapter, rt.Logger), nil
}

// DefaultEngine picks the engine for commands that did not name one:
// the sole registered engine, or an error when the choice is ambiguous.
func (rt *Runtime) DefaultEngine() (string, error) {
	names := rt.Engines.Available()
	if len(names) == 1 {
		return names[0], nil
	}
	if len(names) == 0 {
		return "", errors.NewEngineUnavailable("(none)", nil)
	}
	return "", &errors.RowguardError{
		Code:       errors.CodeValidation,
		Message:    "no engine selected",
		Reason:     fmt.Sprintf("%d engines are configured", len(names)),
		Suggestion: "pass --engine to choose one",
	}
}

// Close releases engine connections and the registry handle.
func (rt *Runtime) Close() {
	if rt.Engines != nil {
		rt.Engines.CloseAll()
	}
	if rt.db != nil {
		rt.db.Close()
	}
}
