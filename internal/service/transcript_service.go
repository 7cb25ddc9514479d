package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/siakad-krs-api/internal/dto"
	"github.com/noah-isme/siakad-krs-api/internal/grading"
	"github.com/noah-isme/siakad-krs-api/internal/models"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
	"github.com/noah-isme/siakad-krs-api/pkg/export"
)

type transcriptStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.TranscriptItem, error)
	Upsert(ctx context.Context, item *models.TranscriptItem) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Transcript export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportFile is a rendered transcript document.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TranscriptService posts grades and serves IPS/IPK views of a transcript.
type TranscriptService struct {
	store     transcriptStore
	students  studentReader
	courses   courseReader
	cache     *CacheService
	audit     auditRecorder
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTranscriptService constructs TranscriptService.
func NewTranscriptService(store transcriptStore, students studentReader, courses courseReader, cache *CacheService, audit auditRecorder, csv csvRenderer, pdf pdfRenderer, validate *validator.Validate, logger *zap.Logger) *TranscriptService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &TranscriptService{store: store, students: students, courses: courses, cache: cache, audit: audit, csv: csv, pdf: pdf, validator: validate, logger: logger}
}

// Summary returns per-semester IPS, IPK and credit totals, optionally capped at a ceiling semester.
func (s *TranscriptService) Summary(ctx context.Context, actor *models.JWTClaims, studentID string, ceiling *int) (*models.TranscriptSummary, error) {
	if err := authorizeStudent(actor, studentID); err != nil {
		return nil, err
	}
	if ceiling != nil && *ceiling < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ceiling semester must be positive")
	}

	key := summaryCacheKey(studentID, ceiling)
	var cached models.TranscriptSummary
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	items, err := s.items(ctx, studentID)
	if err != nil {
		return nil, err
	}
	summary := &models.TranscriptSummary{
		StudentID: studentID,
		Ceiling:   ceiling,
		Summary:   grading.Summarize(models.GradingItems(items), ceiling),
	}
	_ = s.cache.Set(ctx, key, summary, 0)
	return summary, nil
}

// SemesterReport returns the KHS of one semester.
func (s *TranscriptService) SemesterReport(ctx context.Context, actor *models.JWTClaims, studentID string, semester int) (*models.SemesterReport, error) {
	if err := authorizeStudent(actor, studentID); err != nil {
		return nil, err
	}
	if semester < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester must be positive")
	}
	items, err := s.items(ctx, studentID)
	if err != nil {
		return nil, err
	}

	report := &models.SemesterReport{StudentID: studentID, Semester: semester, Items: []models.TranscriptItem{}}
	for _, it := range items {
		if it.Semester != semester {
			continue
		}
		report.Items = append(report.Items, it)
		if grading.IsClosed(it.Grade) {
			report.Credits += it.Credits
			report.QualityPoints += it.WeightedPoint()
		}
	}
	report.Index = grading.SemesterIndex(models.GradingItems(items), semester)
	return report, nil
}

// PostGrade records a letter grade, overwriting an earlier grade of the same course and semester.
func (s *TranscriptService) PostGrade(ctx context.Context, actor *models.JWTClaims, req dto.PostGradeRequest) (*models.TranscriptItem, error) {
	req.Grade = strings.ToUpper(strings.TrimSpace(req.Grade))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators post grades")
	}
	if _, err := loadStudent(ctx, s.students, req.StudentID); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	item := &models.TranscriptItem{
		StudentID:  req.StudentID,
		CourseID:   course.ID,
		CourseCode: course.Code,
		CourseName: course.Name,
		Semester:   req.Semester,
		Grade:      req.Grade,
		Credits:    course.Credits,
	}
	if err := s.store.Upsert(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to post grade")
	}
	if err := s.cache.Invalidate(ctx, summaryCachePattern(req.StudentID)); err != nil {
		s.logger.Warn("stale transcript summary left in cache", zap.String("student_id", req.StudentID), zap.Error(err))
	}
	s.audit.Record(ctx, actor, models.AuditActionGradePosted, "transcript", item.ID, item)
	return item, nil
}

// Export renders the transcript as CSV or PDF with the IPK footer.
func (s *TranscriptService) Export(ctx context.Context, actor *models.JWTClaims, studentID, format string) (*ExportFile, error) {
	if err := authorizeStudent(actor, studentID); err != nil {
		return nil, err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatPDF
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	student, err := loadStudent(ctx, s.students, studentID)
	if err != nil {
		return nil, err
	}
	items, err := s.items(ctx, studentID)
	if err != nil {
		return nil, err
	}

	dataset := transcriptDataset(items)
	filename := fmt.Sprintf("transkrip-%s.%s", student.NIM, format)
	if format == ExportFormatCSV {
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		return &ExportFile{Filename: filename, ContentType: "text/csv", Data: data}, nil
	}
	data, err := s.pdf.Render(dataset, fmt.Sprintf("Transkrip %s - %s", student.NIM, student.FullName))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	return &ExportFile{Filename: filename, ContentType: "application/pdf", Data: data}, nil
}

func (s *TranscriptService) items(ctx context.Context, studentID string) ([]models.TranscriptItem, error) {
	items, err := s.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript")
	}
	return items, nil
}

func transcriptDataset(items []models.TranscriptItem) export.Dataset {
	headers := []string{"Smt", "Kode", "Mata Kuliah", "SKS", "HM", "AM", "NM"}
	rows := make([]map[string]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, map[string]string{
			"Smt":         strconv.Itoa(it.Semester),
			"Kode":        it.CourseCode,
			"Mata Kuliah": it.CourseName,
			"SKS":         strconv.Itoa(it.Credits),
			"HM":          it.Grade,
			"AM":          strconv.Itoa(it.QualityPoint()),
			"NM":          strconv.Itoa(it.WeightedPoint()),
		})
	}
	summary := grading.Summarize(models.GradingItems(items), nil)
	return export.Dataset{
		Headers: headers,
		Rows:    rows,
		Footer: []string{
			fmt.Sprintf("Total SKS: %d", summary.TotalCreditsEarned),
			fmt.Sprintf("Total NM: %d", summary.TotalQualityPoints),
			fmt.Sprintf("IPK: %.2f", summary.CumulativeIndex),
		},
	}
}

func summaryCacheKey(studentID string, ceiling *int) string {
	suffix := "all"
	if ceiling != nil {
		suffix = strconv.Itoa(*ceiling)
	}
	return fmt.Sprintf("transcript:summary:%s:%s", studentID, suffix)
}

func summaryCachePattern(studentID string) string {
	return fmt.Sprintf("transcript:summary:%s:*", studentID)
}
