package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stolik/internal/models"
)

// UpsertResource writes the resource to the registry and refreshes the cache.
// Resources carry their identity from configuration, so the id is never
// generated here.
func (db *DB) UpsertResource(ctx context.Context, resource *models.Resource) error {
	if resource.Status == "" {
		resource.Status = models.ResourceAvailable
	}

	query := `INSERT INTO resources (id, name, kind, capacity, status, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  kind = excluded.kind,
                  capacity = excluded.capacity,
                  status = excluded.status,
                  updated_at = excluded.updated_at`
	now := time.Now()
	_, err := db.db.ExecContext(ctx, query,
		resource.ID,
		resource.Name,
		resource.Kind,
		resource.Capacity,
		resource.Status,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert resource: %w", err)
	}
	resource.UpdatedAt = now

	db.mu.Lock()
	db.resources[resource.ID] = *resource
	db.mu.Unlock()

	return nil
}

// SeedResources loads the configured resources into the registry at startup.
func (db *DB) SeedResources(ctx context.Context, resources []models.Resource) error {
	for i := range resources {
		if err := db.UpsertResource(ctx, &resources[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetResource returns a resource by id, cache first.
func (db *DB) GetResource(ctx context.Context, id int64) (*models.Resource, error) {
	db.mu.RLock()
	cached, ok := db.resources[id]
	db.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	var r models.Resource
	query := `SELECT id, name, kind, capacity, status, created_at, updated_at FROM resources WHERE id = ?`
	err := db.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.Name, &r.Kind, &r.Capacity, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	db.mu.Lock()
	db.resources[r.ID] = r
	db.mu.Unlock()

	return &r, nil
}

// ListResources returns every registered resource ordered by id.
func (db *DB) ListResources(ctx context.Context) ([]models.Resource, error) {
	query := `SELECT id, name, kind, capacity, status, created_at, updated_at FROM resources ORDER BY id`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.Kind, &r.Capacity, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

// SetResourceStatus flips the availability flag. Administrative operation;
// existing reservations are not touched.
func (db *DB) SetResourceStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE resources SET status = ?, updated_at = ? WHERE id = ?`
	result, err := db.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set resource status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrResourceNotFound
	}

	db.mu.Lock()
	if cached, ok := db.resources[id]; ok {
		cached.Status = status
		db.resources[id] = cached
	}
	db.mu.Unlock()

	return nil
}

// DeleteResource removes a resource and nulls the reference on its
// reservations. History stays queryable; nothing cascades.
func (db *DB) DeleteResource(ctx context.Context, id int64) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET resource_id = NULL, updated_at = ? WHERE resource_id = ?`,
		time.Now(), id,
	); err != nil {
		return fmt.Errorf("failed to detach reservations: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrResourceNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit resource deletion: %w", err)
	}

	db.mu.Lock()
	delete(db.resources, id)
	db.mu.Unlock()

	return nil
}
