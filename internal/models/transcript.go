package models

import (
	"time"

	"github.com/noah-isme/siakad-krs-api/internal/grading"
)

// TranscriptItem is one graded (or pending) course on a student's transcript.
type TranscriptItem struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	CourseCode string    `db:"course_code" json:"course_code"`
	CourseName string    `db:"course_name" json:"course_name"`
	Semester   int       `db:"semester" json:"smt"`
	Grade      string    `db:"grade" json:"hm"`
	Credits    int       `db:"sks" json:"sks"`
	PostedAt   time.Time `db:"posted_at" json:"posted_at"`
}

// QualityPoint returns the point value of the grade (AM), zero when ungraded.
func (t TranscriptItem) QualityPoint() int {
	point, _ := grading.QualityPoint(t.Grade)
	return point
}

// WeightedPoint returns credits × quality point (NM).
func (t TranscriptItem) WeightedPoint() int {
	return t.Credits * t.QualityPoint()
}

// GradingItems projects transcript rows for the aggregation engine.
func GradingItems(items []TranscriptItem) []grading.Item {
	out := make([]grading.Item, 0, len(items))
	for _, it := range items {
		out = append(out, grading.Item{Semester: it.Semester, Grade: it.Grade, Credits: it.Credits})
	}
	return out
}

// TranscriptSummary is the cached IPS/IPK view of a transcript.
type TranscriptSummary struct {
	StudentID string `json:"student_id"`
	Ceiling   *int   `json:"ceiling_semester,omitempty"`
	grading.Summary
}

// SemesterReport is the KHS of one semester.
type SemesterReport struct {
	StudentID     string           `json:"student_id"`
	Semester      int              `json:"semester"`
	Items         []TranscriptItem `json:"items"`
	Credits       int              `json:"sks"`
	QualityPoints int              `json:"nm"`
	Index         float64          `json:"ips"`
}
