package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/siakad-krs-api/internal/dto"
	"github.com/noah-isme/siakad-krs-api/internal/models"
	"github.com/noah-isme/siakad-krs-api/internal/repository"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
)

type enrollmentStore interface {
	WithinScope(ctx context.Context, studentID, periodID string, fn func(scope repository.EnrollmentScope) error) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListDetails(ctx context.Context, studentID, periodID string) ([]models.EnrollmentDetail, error)
	ListPending(ctx context.Context, periodID string) ([]models.PendingApproval, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

type periodReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicPeriod, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	ListOffered(ctx context.Context, programID string, semesters []int) ([]models.Course, error)
}

// KRSConfig tunes the registration rules.
type KRSConfig struct {
	MaxSKS int
}

// KRSService drives the student side of the KRS lifecycle: draft, delete and submit.
type KRSService struct {
	store     enrollmentStore
	students  studentReader
	periods   periodReader
	courses   courseReader
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    KRSConfig
}

// NewKRSService constructs KRSService.
func NewKRSService(store enrollmentStore, students studentReader, periods periodReader, courses courseReader, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg KRSConfig) *KRSService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	if cfg.MaxSKS <= 0 {
		cfg.MaxSKS = DefaultMaxSKS
	}
	return &KRSService{store: store, students: students, periods: periods, courses: courses, audit: audit, metrics: metrics, validator: validate, logger: logger, config: cfg}
}

// ListOfferings returns the courses a student can pick in a period, flagged with what is already taken.
func (s *KRSService) ListOfferings(ctx context.Context, actor *models.JWTClaims, studentID, periodID string) ([]models.CourseOffering, error) {
	if err := authorizeStudent(actor, studentID); err != nil {
		return nil, err
	}
	student, err := loadStudent(ctx, s.students, studentID)
	if err != nil {
		return nil, err
	}
	period, err := loadPeriod(ctx, s.periods, periodID)
	if err != nil {
		return nil, err
	}
	courses, err := s.courses.ListOffered(ctx, student.ProgramID, period.Semesters())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offered courses")
	}
	records, err := s.store.ListDetails(ctx, studentID, periodID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load krs")
	}

	taken := make(map[string]models.EnrollmentDetail, len(records))
	for _, rec := range records {
		taken[rec.CourseID] = rec
	}
	offerings := make([]models.CourseOffering, 0, len(courses))
	for _, course := range courses {
		offering := models.CourseOffering{Course: course}
		if rec, ok := taken[course.ID]; ok {
			id, status := rec.ID, rec.Status
			offering.IsTaken = true
			offering.EnrollmentID = &id
			offering.Status = &status
		}
		offerings = append(offerings, offering)
	}
	return offerings, nil
}

// List returns the KRS of a student for a period with its credit load.
func (s *KRSService) List(ctx context.Context, actor *models.JWTClaims, studentID, periodID string) (*dto.KRSSummary, error) {
	if err := authorizeStudent(actor, studentID); err != nil {
		return nil, err
	}
	records, err := s.store.ListDetails(ctx, studentID, periodID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load krs")
	}
	if records == nil {
		records = []models.EnrollmentDetail{}
	}
	return &dto.KRSSummary{
		StudentID: studentID,
		PeriodID:  periodID,
		Status:    aggregateStatus(records),
		TotalSKS:  models.TotalCredits(records),
		MaxSKS:    s.config.MaxSKS,
		Records:   records,
	}, nil
}

// Create adds a DRAFT record after the scope and constraint checks pass.
func (s *KRSService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateKRSRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid krs payload")
	}
	if err := authorizeStudent(actor, req.StudentID); err != nil {
		return nil, err
	}
	student, err := loadStudent(ctx, s.students, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student inactive")
	}
	period, err := s.openPeriod(ctx, actor, req.PeriodID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !period.OffersSemester(course.Semester) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not offered in this period")
	}

	enrollment := &models.Enrollment{StudentID: student.ID, PeriodID: period.ID, CourseID: course.ID, Status: models.EnrollmentStatusDraft}
	err = s.store.WithinScope(ctx, student.ID, period.ID, func(scope repository.EnrollmentScope) error {
		records, err := scope.Records(ctx)
		if err != nil {
			return err
		}
		if err := checkEditable(records); err != nil {
			return err
		}
		if err := CheckEnrollment(EnrollmentCandidate{Student: *student, Course: *course, Current: records, MaxSKS: s.config.MaxSKS}); err != nil {
			return err
		}
		return scope.Insert(ctx, enrollment)
	})
	if err != nil {
		return nil, s.scopeError(err, "failed to create krs record")
	}

	s.metrics.RecordKRSTransition(string(models.EnrollmentStatusDraft), 1)
	s.audit.Record(ctx, actor, models.AuditActionKRSCreate, "krs", enrollment.ID, enrollment)
	return &models.EnrollmentDetail{
		Enrollment:     *enrollment,
		CourseCode:     course.Code,
		CourseName:     course.Name,
		CourseCredits:  course.Credits,
		CourseSemester: course.Semester,
		CourseCategory: course.Category,
	}, nil
}

// Delete removes a record while its KRS is still editable.
func (s *KRSService) Delete(ctx context.Context, actor *models.JWTClaims, enrollmentID string) error {
	enrollment, err := s.store.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "krs record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load krs record")
	}
	if err := authorizeStudent(actor, enrollment.StudentID); err != nil {
		return err
	}
	if !enrollment.Status.Editable() {
		s.metrics.RecordConstraintRejection(appErrors.ErrLockedRecord.Code)
		return appErrors.Clone(appErrors.ErrLockedRecord, "krs record is "+string(enrollment.Status))
	}
	if _, err := s.openPeriod(ctx, actor, enrollment.PeriodID); err != nil {
		return err
	}

	err = s.store.WithinScope(ctx, enrollment.StudentID, enrollment.PeriodID, func(scope repository.EnrollmentScope) error {
		records, err := scope.Records(ctx)
		if err != nil {
			return err
		}
		var current *models.EnrollmentDetail
		for i := range records {
			if records[i].ID == enrollmentID {
				current = &records[i]
				break
			}
		}
		if current == nil {
			return appErrors.Clone(appErrors.ErrNotFound, "krs record not found")
		}
		if !current.Status.Editable() {
			return appErrors.Clone(appErrors.ErrLockedRecord, "krs record is "+string(current.Status))
		}
		return scope.Delete(ctx, enrollmentID)
	})
	if err != nil {
		return s.scopeError(err, "failed to delete krs record")
	}

	s.audit.Record(ctx, actor, models.AuditActionKRSDelete, "krs", enrollmentID, enrollment)
	return nil
}

// Submit moves every editable record of the scope to SUBMITTED at once.
func (s *KRSService) Submit(ctx context.Context, actor *models.JWTClaims, req dto.KRSScopeRequest) (*dto.KRSTransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submit payload")
	}
	if err := authorizeStudent(actor, req.StudentID); err != nil {
		return nil, err
	}
	if _, err := s.openPeriod(ctx, actor, req.PeriodID); err != nil {
		return nil, err
	}

	var affected int
	err := s.store.WithinScope(ctx, req.StudentID, req.PeriodID, func(scope repository.EnrollmentScope) error {
		var err error
		affected, err = scope.Transition(ctx,
			[]models.EnrollmentStatus{models.EnrollmentStatusDraft, models.EnrollmentStatusRejected},
			models.EnrollmentStatusSubmitted)
		if err != nil {
			return err
		}
		if affected == 0 {
			return appErrors.Clone(appErrors.ErrNothingToSubmit, "")
		}
		return nil
	})
	if err != nil {
		return nil, s.scopeError(err, "failed to submit krs")
	}

	result := &dto.KRSTransitionResult{StudentID: req.StudentID, PeriodID: req.PeriodID, Status: models.EnrollmentStatusSubmitted, Affected: affected}
	s.metrics.RecordKRSTransition(string(models.EnrollmentStatusSubmitted), affected)
	s.audit.Record(ctx, actor, models.AuditActionKRSSubmit, "krs", req.StudentID, result)
	s.logger.Info("krs submitted", zap.String("student_id", req.StudentID), zap.String("period_id", req.PeriodID), zap.Int("records", affected))
	return result, nil
}

// openPeriod loads the period and, for students, requires it to be the active registration period.
func (s *KRSService) openPeriod(ctx context.Context, actor *models.JWTClaims, periodID string) (*models.AcademicPeriod, error) {
	period, err := loadPeriod(ctx, s.periods, periodID)
	if err != nil {
		return nil, err
	}
	if !period.IsActive && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "registration period is closed")
	}
	return period, nil
}

func (s *KRSService) scopeError(err error, message string) error {
	translated := translateScopeError(err, message)
	if appErr := appErrors.FromError(translated); appErr.Status < 500 {
		s.metrics.RecordConstraintRejection(appErr.Code)
	} else {
		s.logger.Error(message, zap.Error(err))
	}
	return translated
}

// translateScopeError keeps typed errors raised inside a scope and maps storage failures.
func translateScopeError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repository.ErrDuplicateEnrollment) {
		return appErrors.Clone(appErrors.ErrDuplicateRecord, "")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// authorizeStudent lets admins act on any student and students only on themselves.
func authorizeStudent(actor *models.JWTClaims, studentID string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == models.RoleStudent && actor.StudentID != "" && actor.StudentID == studentID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "cannot access another student's krs")
}

func loadStudent(ctx context.Context, students studentReader, id string) (*models.Student, error) {
	student, err := students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func loadPeriod(ctx context.Context, periods periodReader, id string) (*models.AcademicPeriod, error) {
	period, err := periods.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic period")
	}
	return period, nil
}
