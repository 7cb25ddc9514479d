package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siakad-krs-api/internal/models"
)

var studentRowColumns = []string{"id", "nim", "full_name", "program_id", "program_name", "semester", "is_mbkm", "active", "created_at", "updated_at"}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows(studentRowColumns).
			AddRow("stu-1", "2201001", "Ani", "TI", "Teknik Informatika", 3, true, true, time.Now(), time.Now()))

	student, err := repo.FindByID(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.True(t, student.IsMBKM)
	assert.Equal(t, 3, student.Semester)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mbkm := true
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.active = TRUE AND s.semester = $1 AND s.is_mbkm = $2")).
		WithArgs(5, true).
		WillReturnRows(sqlmock.NewRows(studentRowColumns).
			AddRow("stu-1", "2201001", "Ani", "TI", "Teknik Informatika", 5, true, true, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(5, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Semester: 5, IsMBKM: &mbkm})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
