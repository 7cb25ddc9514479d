package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siakad-krs-api/internal/models"
)

var courseRowColumns = []string{"id", "code", "name", "sks", "semester", "category", "allowed_programs", "created_at", "updated_at"}

func TestCourseRepositoryListOffered(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows(courseRowColumns).
		AddRow("crs-1", "IF101", "Algoritma", 3, 1, "Reguler", "{TI,SI}", time.Now(), time.Now()).
		AddRow("crs-9", "MB001", "Magang", 20, 5, "MBKM", "{}", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE semester = ANY($1)")).
		WithArgs(sqlmock.AnyArg(), models.CourseCategoryMBKM, "TI").
		WillReturnRows(rows)

	courses, err := repo.ListOffered(context.Background(), "TI", []int{1, 3, 5, 7})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, []string{"TI", "SI"}, []string(courses[0].AllowedPrograms))
	assert.True(t, courses[1].IsMBKM())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByIDs(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id IN ($1, $2)")).
		WithArgs("crs-1", "crs-2").
		WillReturnRows(sqlmock.NewRows(courseRowColumns).
			AddRow("crs-1", "IF101", "Algoritma", 3, 1, "Reguler", "{TI}", time.Now(), time.Now()))

	courses, err := repo.ListByIDs(context.Background(), []string{"crs-1", "crs-2"})
	require.NoError(t, err)
	require.Len(t, courses, 1)

	empty, err := repo.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}
