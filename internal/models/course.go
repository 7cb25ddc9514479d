package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseCategory separates regular-track courses from off-campus (MBKM) ones.
type CourseCategory string

const (
	CourseCategoryRegular CourseCategory = "Reguler"
	CourseCategoryMBKM    CourseCategory = "MBKM"
)

// Course is a catalogue entry that students register for.
type Course struct {
	ID              string         `db:"id" json:"id"`
	Code            string         `db:"code" json:"code"`
	Name            string         `db:"name" json:"name"`
	Credits         int            `db:"sks" json:"sks"`
	Semester        int            `db:"semester" json:"semester"`
	Category        CourseCategory `db:"category" json:"category"`
	AllowedPrograms pq.StringArray `db:"allowed_programs" json:"allowed_programs"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// IsMBKM reports whether the course belongs to the off-campus program track.
func (c Course) IsMBKM() bool {
	return c.Category == CourseCategoryMBKM
}

// OpenTo reports whether students of programID may take the course.
func (c Course) OpenTo(programID string) bool {
	if c.IsMBKM() {
		return true
	}
	for _, p := range c.AllowedPrograms {
		if p == programID {
			return true
		}
	}
	return false
}

// CourseOffering decorates a course with a student's registration state for a period.
type CourseOffering struct {
	Course
	IsTaken      bool              `json:"is_taken"`
	EnrollmentID *string           `json:"enrollment_id,omitempty"`
	Status       *EnrollmentStatus `json:"status,omitempty"`
}
