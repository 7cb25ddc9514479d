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

var periodRowColumns = []string{"id", "name", "academic_year", "parity", "is_active", "created_at", "updated_at"}

func TestPeriodRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active = TRUE")).
		WillReturnRows(sqlmock.NewRows(periodRowColumns).
			AddRow("per-1", "Ganjil 2024/2025", "2024/2025", "ODD", true, time.Now(), time.Now()))

	period, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PeriodParityOdd, period.Parity)
	assert.Equal(t, []int{1, 3, 5, 7}, period.Semesters())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active = TRUE")).WillReturnError(sql.ErrNoRows)
	_, err = repo.FindActive(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryList(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM academic_periods ORDER BY academic_year DESC")).
		WillReturnRows(sqlmock.NewRows(periodRowColumns).
			AddRow("per-2", "Genap 2024/2025", "2024/2025", "EVEN", false, time.Now(), time.Now()).
			AddRow("per-1", "Ganjil 2024/2025", "2024/2025", "ODD", true, time.Now(), time.Now()))

	periods, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.True(t, periods[0].OffersSemester(4))
	assert.False(t, periods[0].OffersSemester(3))
	require.NoError(t, mock.ExpectationsWereMet())
}
