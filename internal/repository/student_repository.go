package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siakad-krs-api/internal/models"
)

const studentColumns = `s.id, s.nim, s.full_name, s.program_id, COALESCE(p.name, '') AS program_name, s.semester, s.is_mbkm, s.active, s.created_at, s.updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns active students matching the provided filters, used to build bulk enrollment selections.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s LEFT JOIN programs p ON p.id = s.program_id"
	conditions := []string{"s.active = TRUE"}
	var args []interface{}

	if filter.ProgramID != "" {
		args = append(args, filter.ProgramID)
		conditions = append(conditions, fmt.Sprintf("s.program_id = $%d", len(args)))
	}
	if filter.Semester > 0 {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)))
	}
	if filter.IsMBKM != nil {
		args = append(args, *filter.IsMBKM)
		conditions = append(conditions, fmt.Sprintf("s.is_mbkm = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.nim) LIKE $%d)", len(args), len(args)))
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.nim ASC LIMIT %d OFFSET %d", studentColumns, base, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with program info.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s LEFT JOIN programs p ON p.id = s.program_id WHERE s.id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListByIDs loads the given students; unknown ids are simply absent from the result.
func (r *StudentRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM students s LEFT JOIN programs p ON p.id = s.program_id WHERE s.id IN (?)", studentColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build student lookup: %w", err)
	}
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list students by id: %w", err)
	}
	return students, nil
}
