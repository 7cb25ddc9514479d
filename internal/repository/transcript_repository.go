package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siakad-krs-api/internal/models"
)

// TranscriptRepository persists posted grades.
type TranscriptRepository struct {
	db *sqlx.DB
}

// NewTranscriptRepository constructs the repository.
func NewTranscriptRepository(db *sqlx.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// ListByStudent returns all transcript items of a student ordered by semester and course code.
func (r *TranscriptRepository) ListByStudent(ctx context.Context, studentID string) ([]models.TranscriptItem, error) {
	const query = `SELECT t.id, t.student_id, t.course_id, c.code AS course_code, c.name AS course_name, t.semester, t.grade, t.sks, t.posted_at
        FROM transcript_items t
        JOIN courses c ON c.id = t.course_id
        WHERE t.student_id = $1
        ORDER BY t.semester ASC, c.code ASC`
	var items []models.TranscriptItem
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list transcript: %w", err)
	}
	return items, nil
}

// Upsert posts a grade; re-grading the same (student, course, semester) overwrites the row.
func (r *TranscriptRepository) Upsert(ctx context.Context, item *models.TranscriptItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.PostedAt.IsZero() {
		item.PostedAt = time.Now().UTC()
	}
	const query = `INSERT INTO transcript_items (id, student_id, course_id, semester, grade, sks, posted_at)
        VALUES (:id, :student_id, :course_id, :semester, :grade, :sks, :posted_at)
        ON CONFLICT (student_id, course_id, semester)
        DO UPDATE SET grade = EXCLUDED.grade, sks = EXCLUDED.sks, posted_at = EXCLUDED.posted_at`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("upsert transcript item: %w", err)
	}
	return nil
}
