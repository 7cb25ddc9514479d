package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siakad-krs-api/internal/models"
)

// PeriodRepository reads academic periods.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs the repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// List returns all periods, newest first.
func (r *PeriodRepository) List(ctx context.Context) ([]models.AcademicPeriod, error) {
	const query = `SELECT id, name, academic_year, parity, is_active, created_at, updated_at FROM academic_periods ORDER BY academic_year DESC, parity DESC`
	var periods []models.AcademicPeriod
	if err := r.db.SelectContext(ctx, &periods, query); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// FindByID returns a period by its ID.
func (r *PeriodRepository) FindByID(ctx context.Context, id string) (*models.AcademicPeriod, error) {
	const query = `SELECT id, name, academic_year, parity, is_active, created_at, updated_at FROM academic_periods WHERE id = $1`
	var period models.AcademicPeriod
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// FindActive returns the most recently updated active period.
func (r *PeriodRepository) FindActive(ctx context.Context) (*models.AcademicPeriod, error) {
	const query = `SELECT id, name, academic_year, parity, is_active, created_at, updated_at FROM academic_periods WHERE is_active = TRUE ORDER BY updated_at DESC LIMIT 1`
	var period models.AcademicPeriod
	if err := r.db.GetContext(ctx, &period, query); err != nil {
		return nil, err
	}
	return &period, nil
}
