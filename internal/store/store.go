package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/imamik/hstack/internal/provisioning/pool"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS node_templates (
    id TEXT PRIMARY KEY,
    cluster_id TEXT NOT NULL,
    name TEXT NOT NULL,
    flavor TEXT NOT NULL,
    image TEXT NOT NULL,
    location TEXT NOT NULL DEFAULT '',
    user_data TEXT NOT NULL DEFAULT '',
    UNIQUE (cluster_id, name)
);
CREATE TABLE IF NOT EXISTS instances (
    id TEXT PRIMARY KEY,
    cluster_id TEXT NOT NULL,
    template_id TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    internal_ip TEXT NOT NULL DEFAULT '',
    management_ip TEXT NOT NULL DEFAULT '',
    creation_address TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_instances_cluster ON instances(cluster_id);
`

// Instance is a persisted instance record. InternalIP and ManagementIP are
// set by address resolution only; CreationAddress is what the creator
// reported, which may be a placeholder.
type Instance struct {
	ID              string
	ClusterID       string
	TemplateID      string
	Name            string
	InternalIP      string
	ManagementIP    string
	CreationAddress string
	CreatedAt       time.Time
}

// Store is a SQLite-backed record store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps in-memory databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertTemplate inserts or replaces a node template, matched by cluster and
// name.
func (s *Store) UpsertTemplate(ctx context.Context, tmpl pool.NodeTemplate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO node_templates (id, cluster_id, name, flavor, image, location, user_data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cluster_id, name) DO UPDATE SET
			flavor = excluded.flavor,
			image = excluded.image,
			location = excluded.location,
			user_data = excluded.user_data
	`, tmpl.ID, tmpl.ClusterID, tmpl.Name, tmpl.Flavor, tmpl.Image, tmpl.Location, tmpl.UserData)
	if err != nil {
		return fmt.Errorf("failed to upsert template %s of cluster %s: %w", tmpl.Name, tmpl.ClusterID, err)
	}
	return nil
}

// LookupTemplate returns the node template of a cluster with the given name.
// Unknown names yield pool.ErrTemplateNotFound.
func (s *Store) LookupTemplate(ctx context.Context, clusterID, name string) (*pool.NodeTemplate, error) {
	var tmpl pool.NodeTemplate
	err := s.db.QueryRowContext(ctx, `
		SELECT id, cluster_id, name, flavor, image, location, user_data
		FROM node_templates WHERE cluster_id = ? AND name = ?
	`, clusterID, name).Scan(&tmpl.ID, &tmpl.ClusterID, &tmpl.Name, &tmpl.Flavor, &tmpl.Image, &tmpl.Location, &tmpl.UserData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pool.ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up template %s of cluster %s: %w", name, clusterID, err)
	}
	return &tmpl, nil
}

// AppendNodeRecords persists all records in one transaction. Either every
// record is stored or none is. The creator's address is kept apart from the
// resolved addresses.
func (s *Store) AppendNodeRecords(ctx context.Context, records []pool.NodeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	for _, rec := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO instances (id, cluster_id, template_id, name, creation_address, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rec.InstanceID, rec.ClusterID, rec.TemplateID, rec.Name, rec.Address, now)
		if err != nil {
			return fmt.Errorf("failed to insert instance %s: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("persisted node records", "count", len(records))
	return nil
}

// RecordInstance registers an instance created outside the pool, such as a
// stack member, so its addresses can be tracked.
func (s *Store) RecordInstance(ctx context.Context, inst Instance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instances (id, cluster_id, template_id, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cluster_id = excluded.cluster_id,
			template_id = excluded.template_id,
			name = excluded.name
	`, inst.ID, inst.ClusterID, inst.TemplateID, inst.Name, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record instance %s: %w", inst.Name, err)
	}
	return nil
}

// UpdateInstanceAddresses stores the resolved addresses of an instance.
// Empty values overwrite previous ones so a record always reflects the
// latest resolution pass.
func (s *Store) UpdateInstanceAddresses(ctx context.Context, id, internalIP, managementIP string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE instances SET internal_ip = ?, management_ip = ? WHERE id = ?
	`, internalIP, managementIP, id)
	if err != nil {
		return fmt.Errorf("failed to update addresses of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update addresses of %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetInstance returns one instance record.
func (s *Store) GetInstance(ctx context.Context, id string) (*Instance, error) {
	var (
		inst    Instance
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, cluster_id, template_id, name, internal_ip, management_ip, creation_address, created_at
		FROM instances WHERE id = ?
	`, id).Scan(&inst.ID, &inst.ClusterID, &inst.TemplateID, &inst.Name, &inst.InternalIP, &inst.ManagementIP, &inst.CreationAddress, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance %s: %w", id, err)
	}
	inst.CreatedAt = time.Unix(created, 0)
	return &inst, nil
}

// ListInstances returns the instances of a cluster ordered by name.
func (s *Store) ListInstances(ctx context.Context, clusterID string) ([]Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cluster_id, template_id, name, internal_ip, management_ip, creation_address, created_at
		FROM instances WHERE cluster_id = ? ORDER BY name, id
	`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances of %s: %w", clusterID, err)
	}
	defer rows.Close()

	var out []Instance
	for rows.Next() {
		var (
			inst    Instance
			created int64
		)
		if err := rows.Scan(&inst.ID, &inst.ClusterID, &inst.TemplateID, &inst.Name, &inst.InternalIP, &inst.ManagementIP, &inst.CreationAddress, &created); err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		inst.CreatedAt = time.Unix(created, 0)
		out = append(out, inst)
	}
	return out, rows.Err()
}
