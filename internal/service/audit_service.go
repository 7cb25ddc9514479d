package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/siakad-krs-api/internal/models"
	"github.com/noah-isme/siakad-krs-api/pkg/jobs"
)

const auditJobType = "audit.write"

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type auditQueue interface {
	Enqueue(job jobs.Job) error
}

// auditRecorder is what the KRS services need to leave a trail.
type auditRecorder interface {
	Record(ctx context.Context, actor *models.JWTClaims, action, resource, resourceID string, values interface{})
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, *models.JWTClaims, string, string, string, interface{}) {}

// AuditService writes audit logs through the background queue, falling back to a direct insert.
type AuditService struct {
	repo   auditRepository
	queue  auditQueue
	logger *zap.Logger
}

// NewAuditService constructs the service. queue may be nil.
func NewAuditService(repo auditRepository, queue auditQueue, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, queue: queue, logger: logger}
}

// SetQueue attaches the queue once it has been built around HandleJob.
func (s *AuditService) SetQueue(queue auditQueue) {
	s.queue = queue
}

// Record stores an audit entry. Failures are logged, never returned.
func (s *AuditService) Record(ctx context.Context, actor *models.JWTClaims, action, resource, resourceID string, values interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &models.AuditLog{ID: uuid.NewString(), Action: action, Resource: resource}
	if actor != nil && actor.UserID != "" {
		userID := actor.UserID
		entry.UserID = &userID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if values != nil {
		payload, err := json.Marshal(values)
		if err != nil {
			s.logger.Warn("failed to encode audit payload", zap.String("action", action), zap.Error(err))
		} else {
			entry.NewValues = payload
		}
	}

	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: auditJobType, Payload: entry})
		if err == nil {
			return
		}
		s.logger.Warn("audit queue unavailable, writing inline", zap.String("action", action), zap.Error(err))
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

// HandleJob is the queue handler persisting one audit entry.
func (s *AuditService) HandleJob(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return s.repo.Create(ctx, entry)
}
