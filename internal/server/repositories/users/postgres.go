// Package users provides the PostgreSQL-backed repository for portal
// accounts and their pipeline position.
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/dbx"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/google/uuid"
)

const userColumns = `id, email, phone, role, onboarding_step, step_approval_status,
		 selected_program, visa_tracking_code, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the user at the first step with a pending status.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	user.OnboardingStep = models.FirstStep
	user.StepApprovalStatus = models.ApprovalPending

	query :=
		`INSERT INTO users (id, email, phone, role, onboarding_step, step_approval_status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Phone, string(user.Role), user.OnboardingStep, string(user.StepApprovalStatus)).
		Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 FOR UPDATE
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE phone = $1
		 `
	return r.getOne(ctx, query, phone)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = $1
		 `
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		user    models.User
		role    string
		status  string
		program []byte
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Phone, &role, &user.OnboardingStep, &status,
		&program, &user.VisaTrackingCode, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Role = models.Role(role)
	user.StepApprovalStatus = models.ApprovalStatus(status)
	if len(program) > 0 {
		user.SelectedProgram = json.RawMessage(program)
	}

	return &user, nil
}

func (r *PostgresRepository) UpdateProgress(ctx context.Context, id string, step int, status models.ApprovalStatus) error {
	query :=
		`UPDATE users SET onboarding_step = $2, step_approval_status = $3, updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, step, string(status))
}

func (r *PostgresRepository) SetApprovalStatus(ctx context.Context, id string, status models.ApprovalStatus) (bool, error) {
	query :=
		`UPDATE users SET step_approval_status = $2, updated_at = now()
		 WHERE id = $1 AND step_approval_status <> $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) SetSelectedProgram(ctx context.Context, id string, program json.RawMessage) error {
	query :=
		`UPDATE users SET selected_program = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, []byte(program))
}

func (r *PostgresRepository) SetVisaTrackingCode(ctx context.Context, id string, code string) error {
	query :=
		`UPDATE users SET visa_tracking_code = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, code)
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
