package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/siakad-krs-api/internal/dto"
	"github.com/noah-isme/siakad-krs-api/internal/models"
	"github.com/noah-isme/siakad-krs-api/internal/repository"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
)

// ApprovalService is the administrative review of submitted KRS.
type ApprovalService struct {
	store     enrollmentStore
	periods   periodReader
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApprovalService constructs ApprovalService.
func NewApprovalService(store enrollmentStore, periods periodReader, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ApprovalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &ApprovalService{store: store, periods: periods, audit: audit, metrics: metrics, validator: validate, logger: logger}
}

// ListPending returns students waiting for review in a period.
func (s *ApprovalService) ListPending(ctx context.Context, filter dto.PendingKRSFilter) ([]models.PendingApproval, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "period_id is required")
	}
	if _, err := loadPeriod(ctx, s.periods, filter.PeriodID); err != nil {
		return nil, err
	}
	pending, err := s.store.ListPending(ctx, filter.PeriodID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending krs")
	}
	if pending == nil {
		pending = []models.PendingApproval{}
	}
	return pending, nil
}

// Review loads every record of a student's KRS with the aggregate credit load.
func (s *ApprovalService) Review(ctx context.Context, studentID, periodID string) (*dto.KRSSummary, error) {
	if _, err := loadPeriod(ctx, s.periods, periodID); err != nil {
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
		Records:   records,
	}, nil
}

// Approve moves all SUBMITTED records of the pair to APPROVED.
func (s *ApprovalService) Approve(ctx context.Context, actor *models.JWTClaims, req dto.KRSScopeRequest) (*dto.KRSTransitionResult, error) {
	return s.decide(ctx, actor, req, models.EnrollmentStatusApproved, models.AuditActionKRSApprove)
}

// Reject moves all SUBMITTED records of the pair to REJECTED, reopening the KRS for editing.
func (s *ApprovalService) Reject(ctx context.Context, actor *models.JWTClaims, req dto.KRSScopeRequest) (*dto.KRSTransitionResult, error) {
	return s.decide(ctx, actor, req, models.EnrollmentStatusRejected, models.AuditActionKRSReject)
}

func (s *ApprovalService) decide(ctx context.Context, actor *models.JWTClaims, req dto.KRSScopeRequest, to models.EnrollmentStatus, action string) (*dto.KRSTransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators review krs")
	}
	if _, err := loadPeriod(ctx, s.periods, req.PeriodID); err != nil {
		return nil, err
	}

	var affected int
	err := s.store.WithinScope(ctx, req.StudentID, req.PeriodID, func(scope repository.EnrollmentScope) error {
		var err error
		affected, err = scope.Transition(ctx, []models.EnrollmentStatus{models.EnrollmentStatusSubmitted}, to)
		return err
	})
	if err != nil {
		s.logger.Error("krs review failed", zap.String("student_id", req.StudentID), zap.String("status", string(to)), zap.Error(err))
		return nil, translateScopeError(err, "failed to update krs status")
	}

	result := &dto.KRSTransitionResult{StudentID: req.StudentID, PeriodID: req.PeriodID, Status: to, Affected: affected}
	if affected > 0 {
		s.metrics.RecordKRSTransition(string(to), affected)
		s.audit.Record(ctx, actor, action, "krs", req.StudentID, result)
	}
	s.logger.Info("krs reviewed", zap.String("student_id", req.StudentID), zap.String("period_id", req.PeriodID),
		zap.String("status", string(to)), zap.Int("records", affected))
	return result, nil
}
