// Package bootstrap provides declarative provisioning of relations and
// canary rows from a YAML manifest.
//
// The manifest must be:
// - human-readable
// - versionable
// - schema-validated
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rowguard-labs/rowguard/internal/adapters"
	"github.com/rowguard-labs/rowguard/internal/errors"
	"github.com/rowguard-labs/rowguard/internal/guard"
	"github.com/rowguard-labs/rowguard/internal/storage"
)

// Manifest is the declarative description of guarded relations and the
// canary rows planted in them.
type Manifest struct {
	// Relations to register with the registry.
	Relations []RelationSpec `yaml:"relations"`

	// Canaries to plant.
	Canaries []CanarySpec `yaml:"canaries,omitempty"`

	// validated tracks if Validate() has been called
	validated bool

	// applied tracks if Apply() has been called
	applied bool

	// manifestPath is the source file path
	manifestPath string
}

// RelationSpec describes one relation in the manifest.
type RelationSpec struct {
	// Name is the table name, unique per engine.
	Name string `yaml:"name"`

	// Engine is the adapter the relation lives on.
	Engine string `yaml:"engine"`

	// ID optionally pins the relation identifier. Zero means the
	// registry assigns one.
	ID uint32 `yaml:"id,omitempty"`
}

// CanarySpec describes a canary row to plant in a relation.
type CanarySpec struct {
	// Relation names the target relation. Must match a RelationSpec.
	Relation string `yaml:"relation"`

	// Insert is the statement that plants the canary row. It is run
	// verbatim against the relation's engine.
	Insert string `yaml:"insert"`
}

// LoadManifest loads a manifest from a YAML file. Unknown top-level keys
// fail loudly so a typo never silently drops a canary.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	// First pass: check for unknown fields
	var rawManifest map[string]interface{}
	if err := yaml.Unmarshal(data, &rawManifest); err != nil {
		return nil, errors.NewInvalidManifest("yaml", fmt.Sprintf("failed to parse manifest: %v", err))
	}

	knownKeys := map[string]bool{
		"relations": true,
		"canaries":  true,
	}
	for key := range rawManifest {
		if !knownKeys[key] {
			return nil, errors.NewInvalidManifest(key, "unknown manifest key")
		}
	}

	// Second pass: unmarshal into typed manifest
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.NewInvalidManifest("yaml", fmt.Sprintf("failed to unmarshal manifest: %v", err))
	}

	m.manifestPath = path

	if len(m.Relations) == 0 {
		return nil, errors.NewInvalidManifest("relations", "at least one relation is required")
	}

	return &m, nil
}

// Validate performs dry-run invariant checks against the configured
// adapters without touching the registry or any engine.
func (m *Manifest) Validate(registry *adapters.Registry) error {
	seenNames := make(map[string]bool)
	seenIDs := make(map[uint32]string)

	for _, rel := range m.Relations {
		if rel.Name == "" {
			return errors.NewInvalidManifest("relations", "relation with empty name")
		}
		if rel.Engine == "" {
			return errors.NewInvalidManifest("relations", fmt.Sprintf("relation '%s': engine is required", rel.Name))
		}
		if registry != nil {
			if _, ok := registry.Get(rel.Engine); !ok {
				return errors.NewInvalidManifest("relations", fmt.Sprintf("relation '%s': references unknown engine '%s'", rel.Name, rel.Engine))
			}
		}
		if seenNames[rel.Name] {
			return errors.NewInvalidManifest("relations", fmt.Sprintf("duplicate relation name '%s'", rel.Name))
		}
		seenNames[rel.Name] = true

		if rel.ID != 0 {
			if prev, ok := seenIDs[rel.ID]; ok {
				return errors.NewInvalidManifest("relations", fmt.Sprintf("relations '%s' and '%s' share id %d", prev, rel.Name, rel.ID))
			}
			seenIDs[rel.ID] = rel.Name
		}
	}

	for i, canary := range m.Canaries {
		if !seenNames[canary.Relation] {
			return errors.NewInvalidManifest("canaries", fmt.Sprintf("canary %d: references unknown relation '%s'", i, canary.Relation))
		}
		if canary.Insert == "" {
			return errors.NewInvalidManifest("canaries", fmt.Sprintf("canary %d: insert statement is required", i))
		}
	}

	m.validated = true
	return nil
}

// IsValidated returns true if Validate() has been called successfully.
func (m *Manifest) IsValidated() bool {
	return m.validated
}

// IsApplied returns true if Apply() has been called successfully.
func (m *Manifest) IsApplied() bool {
	return m.applied
}

// Apply registers the manifest's relations and plants its canary rows.
// Re-applying an already registered relation is a no-op, so Apply is
// idempotent for the registry half; canary inserts are re-run as written.
func (m *Manifest) Apply(ctx context.Context, relations storage.RelationRegistry, engines *adapters.Registry) error {
	if !m.validated {
		return errors.NewInvalidManifest("manifest", "must be validated before apply")
	}

	engineFor := make(map[string]string, len(m.Relations))

	for _, rel := range m.Relations {
		engineFor[rel.Name] = rel.Engine

		if existing, err := relations.Resolve(ctx, rel.Name); err == nil {
			if rel.ID != 0 && existing != guard.RelationID(rel.ID) {
				return errors.NewInvalidManifest("relations", fmt.Sprintf(
					"relation '%s' already registered with id %d, manifest pins %d",
					rel.Name, existing, rel.ID))
			}
			continue
		}

		if err := registerRelation(ctx, relations, rel); err != nil {
			return fmt.Errorf("failed to register relation '%s': %w", rel.Name, err)
		}
	}

	for i, canary := range m.Canaries {
		adapter, ok := engines.Get(engineFor[canary.Relation])
		if !ok {
			return errors.NewEngineUnavailable(engineFor[canary.Relation], nil)
		}
		if _, err := adapter.Exec(ctx, canary.Insert); err != nil {
			return fmt.Errorf("failed to plant canary %d in relation '%s': %w", i, canary.Relation, err)
		}
	}

	m.applied = true
	return nil
}

func registerRelation(ctx context.Context, relations storage.RelationRegistry, rel RelationSpec) error {
	if rel.ID != 0 {
		if fixed, ok := relations.(interface {
			RegisterFixed(ctx context.Context, id guard.RelationID, name, engine string) error
		}); ok {
			return fixed.RegisterFixed(ctx, guard.RelationID(rel.ID), rel.Name, rel.Engine)
		}
		// Registry cannot honor pinned ids; fall through and let the
		// guard be configured by name instead.
	}
	_, err := relations.Register(ctx, rel.Name, rel.Engine)
	return err
}

// Bootstrapper handles manifest operations.
type Bootstrapper struct {
	relations storage.RelationRegistry
	engines   *adapters.Registry
}

// NewBootstrapper creates a new bootstrapper.
func NewBootstrapper(relations storage.RelationRegistry, engines *adapters.Registry) *Bootstrapper {
	return &Bootstrapper{relations: relations, engines: engines}
}

// Init generates an example manifest file.
func (b *Bootstrapper) Init(dir string) (string, error) {
	manifestPath := filepath.Join(dir, "rowguard.yaml")

	exampleManifest := `# Rowguard manifest
# Generated by 'rowguard bootstrap init'

relations:
  - name: customers
    engine: sqlite

  # Pin the identifier when the guard configuration references it by id.
  # - name: accounts
  #   engine: postgres
  #   id: 16389

canaries:
  - relation: customers
    insert: "INSERT INTO customers (id, email) VALUES (999999, 'SENTINEL-do-not-touch')"
`

	if err := os.WriteFile(manifestPath, []byte(exampleManifest), 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest file: %w", err)
	}

	return manifestPath, nil
}

// ValidateAndApply loads, validates, and applies a manifest in one step.
func (b *Bootstrapper) ValidateAndApply(ctx context.Context, path string) error {
	m, err := LoadManifest(path)
	if err != nil {
		return err
	}
	if err := m.Validate(b.engines); err != nil {
		return err
	}
	return m.Apply(ctx, b.relations, b.engines)
}
