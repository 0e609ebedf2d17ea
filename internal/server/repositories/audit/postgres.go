// Package audit persists the trail of privileged mutations.
package audit

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/abroadportal/internal/dbx"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (actor_id, action, entity, entity_id, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, e.ActorID, e.Action, e.Entity, e.EntityID, e.Note).
		Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByEntity(ctx context.Context, entity, entityID string) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, entity, entity_id, note, created_at
		FROM audit_log
		WHERE entity = $1 AND entity_id = $2
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, entity, entityID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
