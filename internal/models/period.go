package models

import "time"

// PeriodParity distinguishes odd (ganjil) and even (genap) academic periods.
type PeriodParity string

const (
	PeriodParityOdd  PeriodParity = "ODD"
	PeriodParityEven PeriodParity = "EVEN"
)

// AcademicPeriod models one registration period of the academic calendar.
type AcademicPeriod struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	AcademicYear string       `db:"academic_year" json:"academic_year"`
	Parity       PeriodParity `db:"parity" json:"parity"`
	IsActive     bool         `db:"is_active" json:"is_active"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// Semesters returns the semester numbers open for registration in this period.
func (p AcademicPeriod) Semesters() []int {
	if p.Parity == PeriodParityEven {
		return []int{2, 4, 6, 8}
	}
	return []int{1, 3, 5, 7}
}

// OffersSemester reports whether semester belongs to the period parity.
func (p AcademicPeriod) OffersSemester(semester int) bool {
	for _, s := range p.Semesters() {
		if s == semester {
			return true
		}
	}
	return false
}
