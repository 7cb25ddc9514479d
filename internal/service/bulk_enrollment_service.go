package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/siakad-krs-api/internal/dto"
	"github.com/noah-isme/siakad-krs-api/internal/models"
	"github.com/noah-isme/siakad-krs-api/internal/repository"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
)

// BulkConfig tunes collective enrollment.
type BulkConfig struct {
	MaxSKS  int
	Workers int
}

// BulkEnrollmentService creates APPROVED KRS rows for a student × course matrix with partial success.
type BulkEnrollmentService struct {
	store     enrollmentStore
	students  studentReader
	periods   periodReader
	courses   courseReader
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    BulkConfig
}

// NewBulkEnrollmentService constructs BulkEnrollmentService.
func NewBulkEnrollmentService(store enrollmentStore, students studentReader, periods periodReader, courses courseReader, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg BulkConfig) *BulkEnrollmentService {
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
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &BulkEnrollmentService{store: store, students: students, periods: periods, courses: courses, audit: audit, metrics: metrics, validator: validate, logger: logger, config: cfg}
}

// Create enrolls every selected student into every selected course. Pairs failing a constraint are
// skipped with a reason; each created pair commits on its own so earlier work survives a later failure.
// A storage failure stops the run and is returned together with the partial result.
func (s *BulkEnrollmentService) Create(ctx context.Context, actor *models.JWTClaims, req dto.BulkKRSRequest) (*dto.BulkKRSResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk krs payload")
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators run bulk enrollment")
	}
	period, err := loadPeriod(ctx, s.periods, req.PeriodID)
	if err != nil {
		return nil, err
	}
	if !period.OffersSemester(req.Semester) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester does not match the period parity")
	}

	start := time.Now()
	studentIDs := uniqueIDs(req.StudentIDs)
	courseIDs := uniqueIDs(req.CourseIDs)

	students, err := s.students.ListByIDs(ctx, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	courses, err := s.courses.ListByIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	run := &bulkRun{}
	studentByID := make(map[string]models.Student, len(students))
	for _, st := range students {
		studentByID[st.ID] = st
	}
	courseByID := make(map[string]models.Course, len(courses))
	for _, c := range courses {
		courseByID[c.ID] = c
	}

	var usableCourses []models.Course
	for _, id := range courseIDs {
		course, ok := courseByID[id]
		switch {
		case !ok:
			run.skipAll(studentIDs, id, dto.SkipCourseNotFound)
		case !period.OffersSemester(course.Semester):
			run.skipAll(studentIDs, id, dto.SkipSemesterMismatch)
		default:
			usableCourses = append(usableCourses, course)
		}
	}

	var candidates []models.Student
	for _, id := range studentIDs {
		student, ok := studentByID[id]
		reason := ""
		switch {
		case !ok:
			reason = dto.SkipStudentNotFound
		case !student.Active:
			reason = dto.SkipStudentInactive
		case student.Semester != req.Semester:
			reason = dto.SkipSemesterMismatch
		}
		if reason != "" {
			for _, c := range usableCourses {
				run.skip(id, c.ID, reason)
			}
			continue
		}
		candidates = append(candidates, student)
	}

	selection := SelectBatch(candidates, usableCourses)
	for _, ex := range selection.Excluded {
		run.skip(ex.StudentID, ex.CourseID, ex.Reason)
	}

	runErr := s.enrollAll(ctx, period.ID, selection, run)

	result := run.result(period.ID)
	s.metrics.RecordBulkRun(result.CreatedCount, run.reasonCounts(), time.Since(start))
	s.audit.Record(ctx, actor, models.AuditActionKRSBulk, "krs", period.ID, map[string]interface{}{
		"semester":      req.Semester,
		"student_ids":   studentIDs,
		"course_ids":    courseIDs,
		"created_count": result.CreatedCount,
		"skipped_count": result.SkippedCount,
	})

	if runErr != nil {
		s.logger.Error("bulk enrollment interrupted", zap.String("period_id", period.ID), zap.Int("created", result.CreatedCount), zap.Error(runErr))
		return result, translateScopeError(runErr, "bulk enrollment interrupted")
	}
	s.logger.Info("bulk enrollment finished", zap.String("period_id", period.ID), zap.Int("created", result.CreatedCount), zap.Int("skipped", result.SkippedCount))
	return result, nil
}

// enrollAll fans students out to the worker pool; the courses of one student run sequentially.
func (s *BulkEnrollmentService) enrollAll(ctx context.Context, periodID string, selection BatchSelection, run *bulkRun) error {
	if len(selection.Students) == 0 || len(selection.Courses) == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := s.config.Workers
	if workers > len(selection.Students) {
		workers = len(selection.Students)
	}

	queue := make(chan models.Student)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for student := range queue {
				for _, course := range selection.Courses {
					if ctx.Err() != nil {
						return
					}
					if err := s.enrollPair(ctx, periodID, student, course, run); err != nil {
						errOnce.Do(func() {
							firstErr = err
							cancel()
						})
						return
					}
				}
			}
		}()
	}

feed:
	for _, student := range selection.Students {
		select {
		case <-ctx.Done():
			break feed
		case queue <- student:
		}
	}
	close(queue)
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	return firstErr
}

func (s *BulkEnrollmentService) enrollPair(ctx context.Context, periodID string, student models.Student, course models.Course, run *bulkRun) error {
	var reason string
	err := s.store.WithinScope(ctx, student.ID, periodID, func(scope repository.EnrollmentScope) error {
		records, err := scope.Records(ctx)
		if err != nil {
			return err
		}
		if err := CheckEnrollment(EnrollmentCandidate{Student: student, Course: course, Current: records, MaxSKS: s.config.MaxSKS}); err != nil {
			var appErr *appErrors.Error
			if errors.As(err, &appErr) {
				reason = appErr.Code
				return nil
			}
			return err
		}
		return scope.Insert(ctx, &models.Enrollment{
			StudentID: student.ID,
			PeriodID:  periodID,
			CourseID:  course.ID,
			Status:    models.EnrollmentStatusApproved,
		})
	})
	switch {
	case errors.Is(err, repository.ErrDuplicateEnrollment):
		run.skip(student.ID, course.ID, dto.SkipDuplicateRecord)
		return nil
	case err != nil:
		return err
	case reason != "":
		run.skip(student.ID, course.ID, reason)
		return nil
	}
	run.created()
	return nil
}

type bulkRun struct {
	mu      sync.Mutex
	count   int
	skipped []dto.BulkSkip
}

func (r *bulkRun) created() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func (r *bulkRun) skip(studentID, courseID, reason string) {
	r.mu.Lock()
	r.skipped = append(r.skipped, dto.BulkSkip{StudentID: studentID, CourseID: courseID, Reason: reason})
	r.mu.Unlock()
}

func (r *bulkRun) skipAll(studentIDs []string, courseID, reason string) {
	for _, id := range studentIDs {
		r.skip(id, courseID, reason)
	}
}

func (r *bulkRun) reasonCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, sk := range r.skipped {
		counts[sk.Reason]++
	}
	return counts
}

func (r *bulkRun) result(periodID string) *dto.BulkKRSResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	skipped := append([]dto.BulkSkip{}, r.skipped...)
	sort.Slice(skipped, func(i, j int) bool {
		if skipped[i].StudentID != skipped[j].StudentID {
			return skipped[i].StudentID < skipped[j].StudentID
		}
		return skipped[i].CourseID < skipped[j].CourseID
	})
	return &dto.BulkKRSResult{
		PeriodID:     periodID,
		CreatedCount: r.count,
		SkippedCount: len(skipped),
		Skipped:      skipped,
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
