package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siakad-krs-api/internal/models"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
)

type stubStudentRepo struct {
	students   []models.Student
	lastFilter models.StudentFilter
	err        error
}

func (s *stubStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	s.lastFilter = filter
	return s.students, len(s.students), s.err
}

func (s *stubStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, st := range s.students {
		if st.ID == id {
			return &st, nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubPeriodRepo struct {
	periods []models.AcademicPeriod
}

func (s *stubPeriodRepo) List(ctx context.Context) ([]models.AcademicPeriod, error) {
	return s.periods, nil
}

func (s *stubPeriodRepo) FindActive(ctx context.Context) (*models.AcademicPeriod, error) {
	for _, p := range s.periods {
		if p.IsActive {
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestDirectoryServiceListStudents(t *testing.T) {
	repo := &stubStudentRepo{students: []models.Student{{ID: "stu-1", NIM: "2201001"}}}
	svc := NewDirectoryService(repo, &stubPeriodRepo{}, nil)

	students, pagination, err := svc.ListStudents(context.Background(), models.StudentFilter{PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 20, repo.lastFilter.PageSize)

	repo.err = errors.New("db down")
	_, _, err = svc.ListStudents(context.Background(), models.StudentFilter{})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestDirectoryServiceGetStudent(t *testing.T) {
	svc := NewDirectoryService(&stubStudentRepo{students: []models.Student{{ID: "stu-1"}}}, &stubPeriodRepo{}, nil)

	student, err := svc.GetStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)

	_, err = svc.GetStudent(context.Background(), "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestDirectoryServicePeriods(t *testing.T) {
	periods := &stubPeriodRepo{}
	svc := NewDirectoryService(&stubStudentRepo{}, periods, nil)

	list, err := svc.ListPeriods(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)

	_, err = svc.ActivePeriod(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	periods.periods = []models.AcademicPeriod{{ID: "per-even"}, {ID: "per-odd", IsActive: true}}
	active, err := svc.ActivePeriod(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "per-odd", active.ID)
}
