package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/siakad-krs-api/internal/models"
)

const courseColumns = `id, code, name, sks, semester, category, allowed_programs, created_at, updated_at`

// CourseRepository reads the course catalogue.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByIDs loads the given courses; unknown ids are simply absent from the result.
func (r *CourseRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM courses WHERE id IN (?)", courseColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build course lookup: %w", err)
	}
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list courses by id: %w", err)
	}
	return courses, nil
}

// ListOffered returns courses placed in one of the semesters that are either MBKM or open to the program.
func (r *CourseRepository) ListOffered(ctx context.Context, programID string, semesters []int) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses
WHERE semester = ANY($1)
	AND (category = $2 OR $3 = ANY(allowed_programs))
ORDER BY semester ASC, code ASC`, courseColumns)
	smts := make([]int64, len(semesters))
	for i, s := range semesters {
		smts[i] = int64(s)
	}
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(smts), models.CourseCategoryMBKM, programID); err != nil {
		return nil, fmt.Errorf("list offered courses: %w", err)
	}
	return courses, nil
}
