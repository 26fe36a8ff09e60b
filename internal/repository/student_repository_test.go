package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/models"
)

func TestStudentRepositoryListScopedToMunicipality(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.municipality_id = $1 AND s.status = $2 ORDER BY s.first_surname ASC LIMIT 20 OFFSET 0")).
		WithArgs("mun-1", models.StudentActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_names", "first_surname", "municipality_id", "municipality_name"}).
			AddRow("st-1", "Laura", "Gomez", "mun-1", "Tunja"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s")).
		WithArgs("mun-1", models.StudentActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.StudentActive
	students, total, err := repo.List(context.Background(), models.StudentFilter{
		Status:    &status,
		Scope:     models.Scope{Kind: models.ScopeMunicipality, MunicipalityID: "mun-1"},
		SortBy:    "surname",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Tunja", students[0].MunicipalityName)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListEmptyScopeMatchesNothing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=0 ORDER BY s.created_at DESC")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Scope: models.Scope{Kind: models.ScopeNone}})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	args := make([]driver.Value, 21)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO students").WithArgs(args...).WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{FirstNames: "Laura", FirstSurname: "Gomez", Program: models.ProgramPreICFES, EnrollmentDate: time.Now(), MunicipalityID: "mun-1"}
	err := repo.Create(context.Background(), nil, student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, models.StudentActive, student.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryWithdrawMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $2")).
		WithArgs("st-x", models.StudentWithdrawn, sqlmock.AnyArg(), "grp-ret", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Withdraw(context.Background(), "st-x", time.Now(), "grp-ret")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByIdentification(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE identification = $1 AND id <> $2 LIMIT 1")).
		WithArgs("1002003004", "st-1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByIdentification(context.Background(), "1002003004", "st-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
