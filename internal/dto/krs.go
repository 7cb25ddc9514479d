package dto

import "github.com/noah-isme/siakad-krs-api/internal/models"

// CreateKRSRequest selects a course for a student in a period.
type CreateKRSRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	PeriodID  string `json:"period_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// KRSScopeRequest addresses the KRS of one student in one period.
type KRSScopeRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	PeriodID  string `json:"period_id" validate:"required"`
}

// KRSSummary is the KRS of a student for a period with its credit load.
type KRSSummary struct {
	StudentID string                    `json:"student_id"`
	PeriodID  string                    `json:"period_id"`
	Status    models.EnrollmentStatus   `json:"status,omitempty"`
	TotalSKS  int                       `json:"total_sks"`
	MaxSKS    int                       `json:"max_sks"`
	Records   []models.EnrollmentDetail `json:"records"`
}

// KRSTransitionResult reports how many records moved to the new status.
type KRSTransitionResult struct {
	StudentID string                  `json:"student_id"`
	PeriodID  string                  `json:"period_id"`
	Status    models.EnrollmentStatus `json:"status"`
	Affected  int                     `json:"affected"`
}

// BulkKRSRequest assigns every selected course to every selected student.
type BulkKRSRequest struct {
	PeriodID   string   `json:"period_id" validate:"required"`
	Semester   int      `json:"semester" validate:"required,min=1,max=14"`
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
	CourseIDs  []string `json:"course_ids" validate:"required,min=1,dive,required"`
}

// Bulk skip reasons.
const (
	SkipDuplicateRecord  = "DUPLICATE_RECORD"
	SkipCreditLimit      = "CREDIT_LIMIT_EXCEEDED"
	SkipIneligible       = "INELIGIBLE_PROGRAM"
	SkipMBKMExclusive    = "MBKM_EXCLUSIVE"
	SkipSemesterMismatch = "SEMESTER_MISMATCH"
	SkipStudentNotFound  = "STUDENT_NOT_FOUND"
	SkipCourseNotFound   = "COURSE_NOT_FOUND"
	SkipStudentInactive  = "STUDENT_INACTIVE"
)

// BulkSkip describes one (student, course) pair left out of a bulk run.
type BulkSkip struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	Reason    string `json:"reason"`
}

// BulkKRSResult summarises a bulk enrollment run.
type BulkKRSResult struct {
	PeriodID     string     `json:"period_id"`
	CreatedCount int        `json:"created_count"`
	SkippedCount int        `json:"skipped_count"`
	Skipped      []BulkSkip `json:"skipped"`
}

// PendingKRSFilter narrows the approval queue.
type PendingKRSFilter struct {
	PeriodID string `form:"period_id" validate:"required"`
}

// PostGradeRequest records a letter grade on a transcript.
type PostGradeRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Semester  int    `json:"semester" validate:"required,min=1,max=14"`
	Grade     string `json:"grade" validate:"required,oneof=A B C D E -"`
}
