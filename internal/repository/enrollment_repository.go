package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/siakad-krs-api/internal/models"
	"github.com/noah-isme/siakad-krs-api/pkg/database"
)

// ErrDuplicateEnrollment is returned when the (student, period, course) unique index rejects an insert.
var ErrDuplicateEnrollment = errors.New("enrollment already exists")

const uniqueViolation = "23505"

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.period_id, e.course_id, e.status, e.created_at, e.updated_at,
        c.code AS course_code, c.name AS course_name, c.sks AS course_sks, c.semester AS course_semester, c.category AS course_category
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id`

// EnrollmentScope exposes the KRS rows of one (student, period) pair inside a locked transaction.
type EnrollmentScope interface {
	Records(ctx context.Context) ([]models.EnrollmentDetail, error)
	Insert(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
	Transition(ctx context.Context, from []models.EnrollmentStatus, to models.EnrollmentStatus) (int, error)
}

// EnrollmentRepository handles persistence of KRS records.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// WithinScope runs fn in a transaction holding an advisory lock on (studentID, periodID). Concurrent
// mutations of the same pair queue behind the lock; other pairs proceed in parallel.
func (r *EnrollmentRepository) WithinScope(ctx context.Context, studentID, periodID string, fn func(scope EnrollmentScope) error) error {
	return database.RunInTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, studentID, periodID); err != nil {
			return fmt.Errorf("lock krs scope: %w", err)
		}
		return fn(&enrollmentScope{tx: tx, studentID: studentID, periodID: periodID})
	})
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, period_id, course_id, status, created_at, updated_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListDetails returns the KRS of a student for a period without locking.
func (r *EnrollmentRepository) ListDetails(ctx context.Context, studentID, periodID string) ([]models.EnrollmentDetail, error) {
	return listDetails(ctx, r.db, studentID, periodID)
}

// ListPending returns students holding at least one SUBMITTED record in the period.
func (r *EnrollmentRepository) ListPending(ctx context.Context, periodID string) ([]models.PendingApproval, error) {
	const query = `SELECT s.id AS student_id, s.nim AS student_nim, s.full_name AS student_name, COALESCE(p.name, '') AS program_name,
        COUNT(e.id) AS submitted_count, COALESCE(SUM(c.sks), 0) AS submitted_sks, MAX(e.updated_at) AS submitted_at
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN programs p ON p.id = s.program_id
        WHERE e.period_id = $1 AND e.status = $2
        GROUP BY s.id, s.nim, s.full_name, p.name
        ORDER BY MAX(e.updated_at) ASC`
	var pending []models.PendingApproval
	if err := r.db.SelectContext(ctx, &pending, query, periodID, models.EnrollmentStatusSubmitted); err != nil {
		return nil, fmt.Errorf("list pending krs: %w", err)
	}
	return pending, nil
}

type enrollmentScope struct {
	tx        *sqlx.Tx
	studentID string
	periodID  string
}

func (s *enrollmentScope) Records(ctx context.Context) ([]models.EnrollmentDetail, error) {
	return listDetails(ctx, s.tx, s.studentID, s.periodID)
}

func (s *enrollmentScope) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.StudentID != s.studentID || enrollment.PeriodID != s.periodID {
		return fmt.Errorf("insert enrollment outside locked scope")
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusDraft
	}
	const query = `INSERT INTO enrollments (id, student_id, period_id, course_id, status, created_at, updated_at)
        VALUES (:id, :student_id, :period_id, :course_id, :status, :created_at, :updated_at)`
	if _, err := s.tx.NamedExecContext(ctx, query, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

func (s *enrollmentScope) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1 AND student_id = $2 AND period_id = $3`
	if _, err := s.tx.ExecContext(ctx, query, id, s.studentID, s.periodID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

func (s *enrollmentScope) Transition(ctx context.Context, from []models.EnrollmentStatus, to models.EnrollmentStatus) (int, error) {
	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}
	const query = `UPDATE enrollments SET status = $1, updated_at = $2 WHERE student_id = $3 AND period_id = $4 AND status = ANY($5)`
	res, err := s.tx.ExecContext(ctx, query, to, time.Now().UTC(), s.studentID, s.periodID, pq.Array(statuses))
	if err != nil {
		return 0, fmt.Errorf("transition enrollments to %s: %w", to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transition enrollments rows: %w", err)
	}
	return int(affected), nil
}

func listDetails(ctx context.Context, q sqlx.QueryerContext, studentID, periodID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + `
        WHERE e.student_id = $1 AND e.period_id = $2
        ORDER BY c.semester ASC, c.code ASC`
	var records []models.EnrollmentDetail
	if err := sqlx.SelectContext(ctx, q, &records, query, studentID, periodID); err != nil {
		return nil, fmt.Errorf("list krs records: %w", err)
	}
	return records, nil
}
