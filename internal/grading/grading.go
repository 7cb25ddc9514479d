// Package grading converts letter grades and credit weights into semester (IPS) and
// cumulative (IPK) indices. Every function is pure: no I/O, no shared state, and the
// input slice is never mutated.
package grading

import "strings"

// Pending marks a transcript item that has not been graded yet.
const Pending = "-"

var qualityPoints = map[string]int{
	"A": 4,
	"B": 3,
	"C": 2,
	"D": 1,
	"E": 0,
}

// Item is the minimal view of a transcript row needed for aggregation.
type Item struct {
	Semester int
	Grade    string
	Credits  int
}

// Summary bundles every aggregate for one transcript.
type Summary struct {
	CumulativeIndex    float64         `json:"ipk"`
	TotalCreditsEarned int             `json:"total_sks"`
	TotalQualityPoints int             `json:"total_nm"`
	Semesters          []SemesterTotal `json:"semesters"`
}

// SemesterTotal is one row of the per-semester breakdown.
type SemesterTotal struct {
	Semester      int     `json:"semester"`
	Credits       int     `json:"sks"`
	QualityPoints int     `json:"nm"`
	Index         float64 `json:"ips"`
}

// QualityPoint maps a letter grade to its point value. The second result is false for
// the pending sentinel and any other unmapped grade.
func QualityPoint(grade string) (int, bool) {
	point, ok := qualityPoints[normalize(grade)]
	return point, ok
}

// IsClosed reports whether the grade has been posted with a mapped letter.
func IsClosed(grade string) bool {
	_, ok := QualityPoint(grade)
	return ok
}

// SemesterIndex returns the IPS for the given semester.
func SemesterIndex(items []Item, semester int) float64 {
	credits, points := 0, 0
	for _, item := range items {
		if item.Semester != semester {
			continue
		}
		point, ok := QualityPoint(item.Grade)
		if !ok {
			continue
		}
		credits += item.Credits
		points += item.Credits * point
	}
	return ratio(points, credits)
}

// CumulativeIndex returns the IPK over closed items. When ceiling is non-nil only
// semesters up to and including *ceiling are considered.
func CumulativeIndex(items []Item, ceiling *int) float64 {
	credits, points := 0, 0
	for _, item := range items {
		if ceiling != nil && item.Semester > *ceiling {
			continue
		}
		point, ok := QualityPoint(item.Grade)
		if !ok {
			continue
		}
		credits += item.Credits
		points += item.Credits * point
	}
	return ratio(points, credits)
}

// TotalCreditsEarned sums credits of closed items. E counts: closed grades are counted
// grades, so this total is also the IPK denominator.
func TotalCreditsEarned(items []Item) int {
	total := 0
	for _, item := range items {
		if IsClosed(item.Grade) {
			total += item.Credits
		}
	}
	return total
}

// TotalQualityPoints sums credits × quality point over closed items.
func TotalQualityPoints(items []Item) int {
	total := 0
	for _, item := range items {
		if point, ok := QualityPoint(item.Grade); ok {
			total += item.Credits * point
		}
	}
	return total
}

// Summarize computes every aggregate at once. Semesters are reported in ascending order
// and only when they hold at least one closed item.
func Summarize(items []Item, ceiling *int) Summary {
	scoped := items
	if ceiling != nil {
		scoped = make([]Item, 0, len(items))
		for _, item := range items {
			if item.Semester <= *ceiling {
				scoped = append(scoped, item)
			}
		}
	}

	bySemester := make(map[int]*SemesterTotal)
	maxSemester := 0
	for _, item := range scoped {
		point, ok := QualityPoint(item.Grade)
		if !ok {
			continue
		}
		row, exists := bySemester[item.Semester]
		if !exists {
			row = &SemesterTotal{Semester: item.Semester}
			bySemester[item.Semester] = row
		}
		row.Credits += item.Credits
		row.QualityPoints += item.Credits * point
		if item.Semester > maxSemester {
			maxSemester = item.Semester
		}
	}

	semesters := make([]SemesterTotal, 0, len(bySemester))
	for smt := 0; smt <= maxSemester; smt++ {
		row, ok := bySemester[smt]
		if !ok {
			continue
		}
		row.Index = ratio(row.QualityPoints, row.Credits)
		semesters = append(semesters, *row)
	}

	return Summary{
		CumulativeIndex:    CumulativeIndex(scoped, nil),
		TotalCreditsEarned: TotalCreditsEarned(scoped),
		TotalQualityPoints: TotalQualityPoints(scoped),
		Semesters:          semesters,
	}
}

// ratio returns points/credits rounded half away from zero to two decimals. The
// rounding is done in integers so exact ties such as 87/40 = 2.175 round up.
func ratio(points, credits int) float64 {
	if credits <= 0 {
		return 0
	}
	hundredths := (points*200 + credits) / (2 * credits)
	return float64(hundredths) / 100
}

func normalize(grade string) string {
	return strings.ToUpper(strings.TrimSpace(grade))
}
