package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var userCols = []string{
	"id", "email", "phone", "role", "onboarding_step", "step_approval_status",
	"selected_program", "visa_tracking_code", "created_at", "updated_at",
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email,\s*phone,\s*role,\s*onboarding_step,\s*step_approval_status\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+created_at,\s*updated_at\s*$`

	now := time.Now()
	phone := "+37120000000"
	mock.ExpectQuery(q).
		WithArgs("u-1", "alice@example.com", phone, "student", 1, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	got, err := repo.Create(context.Background(), &models.User{ID: "u-1", Email: "alice@example.com", Phone: &phone, OnboardingStep: 5})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.OnboardingStep != 1 || got.StepApprovalStatus != models.ApprovalPending || got.Role != models.RoleStudent {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_GeneratesID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs(sqlmock.AnyArg(), "bob@example.com", nil, "admin", 1, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	got, err := repo.Create(context.Background(), &models.User{Email: "bob@example.com", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*email,.*\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`

	now := time.Now()
	rows := sqlmock.NewRows(userCols).
		AddRow("u-1", "alice@example.com", nil, "student", 3, "approved", []byte(`{"country":"LV"}`), nil, now, now)
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.OnboardingStep != 3 || got.StepApprovalStatus != models.ApprovalApproved {
		t.Fatalf("unexpected user: %+v", got)
	}
	if string(got.SelectedProgram) != `{"country":"LV"}` {
		t.Fatalf("unexpected program: %s", got.SelectedProgram)
	}
	if got.Phone != nil || got.VisaTrackingCode != nil {
		t.Fatalf("expected nil nullable fields: %+v", got)
	}
}

func TestGetByID_NullProgram(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(userCols).
		AddRow("u-1", "alice@example.com", "+371", "student", 1, "pending", nil, "VT-1", now, now)
	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id`).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.SelectedProgram != nil {
		t.Fatalf("expected nil program, got %s", got.SelectedProgram)
	}
	if got.Phone == nil || *got.Phone != "+371" || got.VisaTrackingCode == nil || *got.VisaTrackingCode != "VT-1" {
		t.Fatalf("unexpected nullable fields: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByIDForUpdate_Locks(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`

	now := time.Now()
	mock.ExpectQuery(q).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u-1", "a@b.c", nil, "student", 4, "pending", nil, nil, now, now))

	if _, err := repo.GetByIDForUpdate(context.Background(), "u-1"); err != nil {
		t.Fatalf("GetByIDForUpdate error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByPhone_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+phone\s*=\s*\$1`).WithArgs("+371").WillReturnError(errors.New("db err"))

	_, err := repo.GetByPhone(context.Background(), "+371")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).WithArgs("root@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("a-1", "root@example.com", nil, "admin", 1, "pending", nil, nil, now, now))

	u, err := repo.GetByEmail(context.Background(), "root@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if !u.IsAdmin() {
		t.Fatalf("expected admin, got %+v", u)
	}
}

func TestUpdateProgress(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+onboarding_step\s*=\s*\$2,\s*step_approval_status\s*=\s*\$3,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs("u-1", 4, "pending").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateProgress(context.Background(), "u-1", 4, models.ApprovalPending); err != nil {
		t.Fatalf("UpdateProgress error: %v", err)
	}

	mock.ExpectExec(q).WithArgs("ghost", 4, "pending").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.UpdateProgress(context.Background(), "ghost", 4, models.ApprovalPending); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestSetApprovalStatus_EdgeTriggered(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+step_approval_status\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+step_approval_status\s*<>\s*\$2\s*$`

	mock.ExpectExec(q).WithArgs("u-1", "approved").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("u-1", "approved").WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.SetApprovalStatus(context.Background(), "u-1", models.ApprovalApproved)
	if err != nil || !changed {
		t.Fatalf("first write: changed=%v err=%v", changed, err)
	}
	changed, err = repo.SetApprovalStatus(context.Background(), "u-1", models.ApprovalApproved)
	if err != nil || changed {
		t.Fatalf("second write: changed=%v err=%v", changed, err)
	}
}

func TestSetApprovalStatus_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users`).WillReturnError(errors.New("db err"))

	_, err := repo.SetApprovalStatus(context.Background(), "u-1", models.ApprovalRejected)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSetSelectedProgram(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	program := json.RawMessage(`{"university":"RTU"}`)
	mock.ExpectExec(`UPDATE\s+users\s+SET\s+selected_program\s*=\s*\$2`).
		WithArgs("u-1", []byte(program)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetSelectedProgram(context.Background(), "u-1", program); err != nil {
		t.Fatalf("SetSelectedProgram error: %v", err)
	}
}

func TestSetVisaTrackingCode_RowsAffectedError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+visa_tracking_code\s*=\s*\$2`).
		WithArgs("u-1", "VT-9").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("ra fail")))

	err := repo.SetVisaTrackingCode(context.Background(), "u-1", "VT-9")
	if err == nil || !regexp.MustCompile(`rows affected error: .*ra fail`).MatchString(err.Error()) {
		t.Fatalf("expected rows affected error, got %v", err)
	}
}
