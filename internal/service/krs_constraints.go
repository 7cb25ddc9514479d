package service

import (
	"fmt"

	"github.com/noah-isme/siakad-krs-api/internal/dto"
	"github.com/noah-isme/siakad-krs-api/internal/models"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
)

// DefaultMaxSKS is the per-period credit ceiling when none is configured.
const DefaultMaxSKS = 24

// EnrollmentCandidate is a prospective KRS row checked against the current load of its scope.
type EnrollmentCandidate struct {
	Student models.Student
	Course  models.Course
	Current []models.EnrollmentDetail
	MaxSKS  int
}

// CheckEnrollment applies the duplicate guard, program eligibility and credit ceiling, in that order.
func CheckEnrollment(c EnrollmentCandidate) error {
	for _, rec := range c.Current {
		if rec.CourseID == c.Course.ID {
			return appErrors.Clone(appErrors.ErrDuplicateRecord, fmt.Sprintf("course %s already in KRS", c.Course.Code))
		}
	}
	if !c.Course.OpenTo(c.Student.ProgramID) {
		return appErrors.Clone(appErrors.ErrIneligibleProgram, fmt.Sprintf("course %s is not open to program %s", c.Course.Code, c.Student.ProgramID))
	}
	max := c.MaxSKS
	if max <= 0 {
		max = DefaultMaxSKS
	}
	current := models.TotalCredits(c.Current)
	if current+c.Course.Credits > max {
		return appErrors.Clone(appErrors.ErrCreditLimitExceeded,
			fmt.Sprintf("adding %d sks to %d exceeds limit of %d", c.Course.Credits, current, max))
	}
	return nil
}

// checkEditable fails with LOCKED_RECORD once any record of the scope left the editable states.
func checkEditable(records []models.EnrollmentDetail) error {
	for _, rec := range records {
		if !rec.Status.Editable() {
			return appErrors.Clone(appErrors.ErrLockedRecord, fmt.Sprintf("krs already %s", rec.Status))
		}
	}
	return nil
}

// aggregateStatus picks the most advanced status of a KRS for display.
func aggregateStatus(records []models.EnrollmentDetail) models.EnrollmentStatus {
	rank := map[models.EnrollmentStatus]int{
		models.EnrollmentStatusDraft:     1,
		models.EnrollmentStatusRejected:  2,
		models.EnrollmentStatusSubmitted: 3,
		models.EnrollmentStatusApproved:  4,
	}
	var best models.EnrollmentStatus
	for _, rec := range records {
		if rank[rec.Status] > rank[best] {
			best = rec.Status
		}
	}
	return best
}

// BatchSelection is the student × course matrix of a bulk run after cross-category exclusivity.
type BatchSelection struct {
	Students []models.Student
	Courses  []models.Course
	Excluded []dto.BulkSkip
}

// SelectBatch enforces MBKM exclusivity. Once the batch carries an MBKM course only MBKM students
// stay selectable; the pairs of every other student are reported as excluded.
func SelectBatch(students []models.Student, courses []models.Course) BatchSelection {
	hasMBKMCourse := false
	for _, c := range courses {
		if c.IsMBKM() {
			hasMBKMCourse = true
			break
		}
	}

	sel := BatchSelection{}
	if hasMBKMCourse {
		sel.Courses = courses
		for _, st := range students {
			if st.IsMBKM {
				sel.Students = append(sel.Students, st)
				continue
			}
			for _, c := range courses {
				sel.Excluded = append(sel.Excluded, dto.BulkSkip{StudentID: st.ID, CourseID: c.ID, Reason: dto.SkipMBKMExclusive})
			}
		}
		return sel
	}

	sel.Students = students
	sel.Courses = courses
	return sel
}
