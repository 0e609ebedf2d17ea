// Package documents provides the PostgreSQL-backed repository for the
// per-user document slots.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/dbx"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/google/uuid"
)

const documentColumns = `id, user_id, type, label, status, file_name, file_url,
		 rejection_reason, created_at, updated_at`

// PostgresRepository implements document storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert relies on UNIQUE (user_id, type); the generated id is used only
// when the slot does not exist yet.
func (r *PostgresRepository) Upsert(ctx context.Context, userID, docType, label string, status models.DocumentStatus, file models.FileRef) (string, error) {
	query := `
		INSERT INTO documents (id, user_id, type, label, status, file_name, file_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, type)
		DO UPDATE SET
			label = EXCLUDED.label,
			status = EXCLUDED.status,
			file_name = EXCLUDED.file_name,
			file_url = EXCLUDED.file_url,
			rejection_reason = NULL,
			updated_at = now()
		RETURNING id
	`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		uuid.NewString(), userID, docType, label, string(status), file.Name, file.URL).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByUserAndType(ctx context.Context, userID, docType string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		 WHERE user_id = $1 AND type = $2
		 `
	return r.getOne(ctx, query, userID, docType)
}

func (r *PostgresRepository) OldestRejected(ctx context.Context, userID string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		 WHERE user_id = $1 AND status = 'rejected'
		 ORDER BY updated_at ASC, created_at ASC
		 LIMIT 1
		 `
	return r.getOne(ctx, query, userID)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		 WHERE user_id = $1
		 ORDER BY created_at ASC
		 `
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, reason *string) error {
	query := `
		UPDATE documents SET status = $2, rejection_reason = $3, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, string(status), reason)
}

func (r *PostgresRepository) ResetSlot(ctx context.Context, id string) error {
	query := `
		UPDATE documents
		SET status = 'pending', file_name = NULL, file_url = NULL, rejection_reason = NULL, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	var (
		d      models.Document
		status string
	)
	if err := s.Scan(
		&d.ID, &d.UserID, &d.Type, &d.Label, &status, &d.FileName, &d.FileURL,
		&d.RejectionReason, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Status = models.DocumentStatus(status)
	return &d, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Document, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
