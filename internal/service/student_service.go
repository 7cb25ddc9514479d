package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/siakad-krs-api/internal/models"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type periodRepository interface {
	List(ctx context.Context) ([]models.AcademicPeriod, error)
	FindActive(ctx context.Context) (*models.AcademicPeriod, error)
}

// DirectoryService serves the read-only student and period lookups used to pick bulk KRS targets.
type DirectoryService struct {
	students studentRepository
	periods  periodRepository
	logger   *zap.Logger
}

// NewDirectoryService constructs the directory service.
func NewDirectoryService(students studentRepository, periods periodRepository, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{students: students, periods: periods, logger: logger}
}

// ListStudents returns active students and pagination metadata.
func (s *DirectoryService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 20
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// GetStudent returns one student.
func (s *DirectoryService) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// ListPeriods returns every academic period, newest first.
func (s *DirectoryService) ListPeriods(ctx context.Context) ([]models.AcademicPeriod, error) {
	periods, err := s.periods.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	if periods == nil {
		periods = []models.AcademicPeriod{}
	}
	return periods, nil
}

// ActivePeriod returns the period currently open for registration.
func (s *DirectoryService) ActivePeriod(ctx context.Context) (*models.AcademicPeriod, error) {
	period, err := s.periods.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active registration period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active period")
	}
	return period, nil
}
