package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/siakad-krs-api/internal/models"
	"github.com/noah-isme/siakad-krs-api/internal/repository"
)

var (
	adminActor   = &models.JWTClaims{UserID: "usr-admin", Role: models.RoleAdmin}
	studentActor = &models.JWTClaims{UserID: "usr-ani", Role: models.RoleStudent, StudentID: "stu-1"}
)

// memoryStore is an in-memory enrollment store; each scope runs under one mutex and rolls back on error.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]models.Enrollment
	courses map[string]models.Course
	seq     int

	insertLimit int
	insertErr   error
	inserts     int
}

func newMemoryStore(courses *memCourses) *memoryStore {
	return &memoryStore{records: map[string]models.Enrollment{}, courses: courses.byID}
}

func (m *memoryStore) WithinScope(ctx context.Context, studentID, periodID string, fn func(scope repository.EnrollmentScope) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]models.Enrollment, len(m.records))
	for k, v := range m.records {
		snapshot[k] = v
	}
	if err := fn(&memScope{store: m, studentID: studentID, periodID: periodID}); err != nil {
		m.records = snapshot
		return err
	}
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &rec, nil
}

func (m *memoryStore) ListDetails(ctx context.Context, studentID, periodID string) ([]models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.details(studentID, periodID), nil
}

func (m *memoryStore) ListPending(ctx context.Context, periodID string) ([]models.PendingApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byStudent := map[string]*models.PendingApproval{}
	for _, rec := range m.records {
		if rec.PeriodID != periodID || rec.Status != models.EnrollmentStatusSubmitted {
			continue
		}
		p, ok := byStudent[rec.StudentID]
		if !ok {
			p = &models.PendingApproval{StudentID: rec.StudentID}
			byStudent[rec.StudentID] = p
		}
		p.SubmittedCount++
		p.SubmittedSKS += m.courses[rec.CourseID].Credits
	}
	var out []models.PendingApproval
	for _, p := range byStudent {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *memoryStore) details(studentID, periodID string) []models.EnrollmentDetail {
	var out []models.EnrollmentDetail
	for _, rec := range m.records {
		if rec.StudentID != studentID || rec.PeriodID != periodID {
			continue
		}
		c := m.courses[rec.CourseID]
		out = append(out, models.EnrollmentDetail{
			Enrollment:     rec,
			CourseCode:     c.Code,
			CourseName:     c.Name,
			CourseCredits:  c.Credits,
			CourseSemester: c.Semester,
			CourseCategory: c.Category,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out
}

// seed stores a record directly, bypassing every rule.
func (m *memoryStore) seed(studentID, periodID, courseID string, status models.EnrollmentStatus) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("enr-%d", m.seq)
	m.records[id] = models.Enrollment{ID: id, StudentID: studentID, PeriodID: periodID, CourseID: courseID, Status: status}
	return id
}

func (m *memoryStore) statuses(studentID, periodID string) map[string]models.EnrollmentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]models.EnrollmentStatus{}
	for _, rec := range m.records {
		if rec.StudentID == studentID && rec.PeriodID == periodID {
			out[rec.CourseID] = rec.Status
		}
	}
	return out
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var _ repository.EnrollmentScope = (*memScope)(nil)

type memScope struct {
	store     *memoryStore
	studentID string
	periodID  string
}

func (s *memScope) Records(ctx context.Context) ([]models.EnrollmentDetail, error) {
	return s.store.details(s.studentID, s.periodID), nil
}

func (s *memScope) Insert(ctx context.Context, e *models.Enrollment) error {
	if e.StudentID != s.studentID || e.PeriodID != s.periodID {
		return errors.New("outside scope")
	}
	if s.store.insertErr != nil && s.store.inserts >= s.store.insertLimit {
		return s.store.insertErr
	}
	for _, rec := range s.store.records {
		if rec.StudentID == e.StudentID && rec.PeriodID == e.PeriodID && rec.CourseID == e.CourseID {
			return repository.ErrDuplicateEnrollment
		}
	}
	s.store.seq++
	s.store.inserts++
	if e.ID == "" {
		e.ID = fmt.Sprintf("enr-%d", s.store.seq)
	}
	if e.Status == "" {
		e.Status = models.EnrollmentStatusDraft
	}
	s.store.records[e.ID] = *e
	return nil
}

func (s *memScope) Delete(ctx context.Context, id string) error {
	rec, ok := s.store.records[id]
	if ok && rec.StudentID == s.studentID && rec.PeriodID == s.periodID {
		delete(s.store.records, id)
	}
	return nil
}

func (s *memScope) Transition(ctx context.Context, from []models.EnrollmentStatus, to models.EnrollmentStatus) (int, error) {
	allowed := map[models.EnrollmentStatus]bool{}
	for _, st := range from {
		allowed[st] = true
	}
	n := 0
	for id, rec := range s.store.records {
		if rec.StudentID == s.studentID && rec.PeriodID == s.periodID && allowed[rec.Status] {
			rec.Status = to
			s.store.records[id] = rec
			n++
		}
	}
	return n, nil
}

type memStudents struct {
	byID map[string]models.Student
}

func (m *memStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (m *memStudents) ListByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range ids {
		if st, ok := m.byID[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

type memPeriods struct {
	byID map[string]models.AcademicPeriod
}

func (m *memPeriods) FindByID(ctx context.Context, id string) (*models.AcademicPeriod, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

type memCourses struct {
	byID map[string]models.Course
}

func (m *memCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m *memCourses) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	var out []models.Course
	for _, id := range ids {
		if c, ok := m.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCourses) ListOffered(ctx context.Context, programID string, semesters []int) ([]models.Course, error) {
	wanted := map[int]bool{}
	for _, s := range semesters {
		wanted[s] = true
	}
	var out []models.Course
	for _, c := range m.byID {
		if wanted[c.Semester] && c.OpenTo(programID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingAudit) Record(ctx context.Context, actor *models.JWTClaims, action, resource, resourceID string, values interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *recordingAudit) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.actions...)
}

type krsFixture struct {
	store    *memoryStore
	students *memStudents
	periods  *memPeriods
	courses  *memCourses
	audit    *recordingAudit
}

func regular(id, code string, sks, semester int, programs ...string) models.Course {
	return models.Course{ID: id, Code: code, Name: code, Credits: sks, Semester: semester, Category: models.CourseCategoryRegular, AllowedPrograms: programs}
}

func newKRSFixture() *krsFixture {
	courses := &memCourses{byID: map[string]models.Course{}}
	for _, c := range []models.Course{
		regular("c1", "IF301", 3, 3, "TI"),
		regular("c2", "IF302", 2, 3, "TI"),
		regular("c3", "IF303", 3, 3, "TI"),
		regular("c4", "IF304", 3, 3, "TI"),
		regular("c5", "IF305", 3, 3, "TI"),
		regular("c2b", "IF306", 2, 3, "TI"),
		regular("big", "IF399", 20, 3, "TI"),
		regular("si-1", "SI301", 3, 3, "SI"),
		regular("ev-1", "IF401", 3, 4, "TI"),
		{ID: "mbkm-1", Code: "MB301", Name: "Magang", Credits: 20, Semester: 3, Category: models.CourseCategoryMBKM},
	} {
		courses.byID[c.ID] = c
	}
	students := &memStudents{byID: map[string]models.Student{
		"stu-1": {ID: "stu-1", NIM: "2201001", FullName: "Ani", ProgramID: "TI", Semester: 3, Active: true},
		"stu-2": {ID: "stu-2", NIM: "2201002", FullName: "Budi", ProgramID: "TI", Semester: 3, IsMBKM: true, Active: true},
		"stu-3": {ID: "stu-3", NIM: "2201003", FullName: "Citra", ProgramID: "SI", Semester: 3, Active: true},
		"stu-4": {ID: "stu-4", NIM: "2201004", FullName: "Dewi", ProgramID: "TI", Semester: 3, Active: false},
		"stu-5": {ID: "stu-5", NIM: "2101005", FullName: "Eko", ProgramID: "TI", Semester: 5, Active: true},
	}}
	periods := &memPeriods{byID: map[string]models.AcademicPeriod{
		"per-odd":    {ID: "per-odd", Name: "Ganjil 2024/2025", Parity: models.PeriodParityOdd, IsActive: true},
		"per-even":   {ID: "per-even", Name: "Genap 2024/2025", Parity: models.PeriodParityEven, IsActive: false},
		"per-closed": {ID: "per-closed", Name: "Ganjil 2023/2024", Parity: models.PeriodParityOdd, IsActive: false},
	}}
	return &krsFixture{
		store:    newMemoryStore(courses),
		students: students,
		periods:  periods,
		courses:  courses,
		audit:    &recordingAudit{},
	}
}
