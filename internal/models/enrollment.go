package models

import "time"

// EnrollmentStatus represents the lifecycle of a KRS item.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusDraft     EnrollmentStatus = "DRAFT"
	EnrollmentStatusSubmitted EnrollmentStatus = "SUBMITTED"
	EnrollmentStatusApproved  EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected  EnrollmentStatus = "REJECTED"
)

// Editable reports whether the student may still change records in this status.
// A rejected KRS is handed back to the student, so it is editable like a draft.
func (s EnrollmentStatus) Editable() bool {
	return s == EnrollmentStatusDraft || s == EnrollmentStatusRejected
}

// Enrollment is one course selection of a student for an academic period.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	PeriodID  string           `db:"period_id" json:"period_id"`
	CourseID  string           `db:"course_id" json:"course_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with course info.
type EnrollmentDetail struct {
	Enrollment
	CourseCode     string         `db:"course_code" json:"course_code"`
	CourseName     string         `db:"course_name" json:"course_name"`
	CourseCredits  int            `db:"course_sks" json:"course_sks"`
	CourseSemester int            `db:"course_semester" json:"course_semester"`
	CourseCategory CourseCategory `db:"course_category" json:"course_category"`
}

// PendingApproval summarises a student waiting for KRS review.
type PendingApproval struct {
	StudentID      string    `db:"student_id" json:"student_id"`
	StudentNIM     string    `db:"student_nim" json:"student_nim"`
	StudentName    string    `db:"student_name" json:"student_name"`
	ProgramName    string    `db:"program_name" json:"program_name"`
	SubmittedCount int       `db:"submitted_count" json:"submitted_count"`
	SubmittedSKS   int       `db:"submitted_sks" json:"submitted_sks"`
	SubmittedAt    time.Time `db:"submitted_at" json:"submitted_at"`
}

// TotalCredits sums the course credits of the given records.
func TotalCredits(records []EnrollmentDetail) int {
	total := 0
	for _, r := range records {
		total += r.CourseCredits
	}
	return total
}
