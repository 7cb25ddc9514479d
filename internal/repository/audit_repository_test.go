package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siakad-krs-api/internal/models"
)

func TestAuditRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	userID := "u-1"
	entry := &models.AuditLog{UserID: &userID, Action: models.AuditActionKRSSubmit, Resource: "krs", NewValues: []byte(`{"affected":2}`)}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.AuditActionKRSSubmit, "krs", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreateError(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).WillReturnError(errors.New("disk full"))

	err := repo.Create(context.Background(), &models.AuditLog{Action: models.AuditActionLogin, Resource: "auth"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create audit log")
}
