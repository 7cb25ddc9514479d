package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siakad-krs-api/internal/dto"
	"github.com/noah-isme/siakad-krs-api/internal/models"
	"github.com/noah-isme/siakad-krs-api/internal/service"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
	"github.com/noah-isme/siakad-krs-api/pkg/response"
)

type transcriptService interface {
	Summary(ctx context.Context, actor *models.JWTClaims, studentID string, ceiling *int) (*models.TranscriptSummary, error)
	SemesterReport(ctx context.Context, actor *models.JWTClaims, studentID string, semester int) (*models.SemesterReport, error)
	PostGrade(ctx context.Context, actor *models.JWTClaims, req dto.PostGradeRequest) (*models.TranscriptItem, error)
	Export(ctx context.Context, actor *models.JWTClaims, studentID, format string) (*service.ExportFile, error)
}

// TranscriptHandler exposes IPS/IPK summaries, KHS and grade posting.
type TranscriptHandler struct {
	transcripts transcriptService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts transcriptService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

// Summary godoc
// @Summary Transcript summary with IPS per semester and IPK
// @Tags Transcript
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param ceiling query int false "Only count semesters up to this one"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/transcript [get]
func (h *TranscriptHandler) Summary(c *gin.Context) {
	var ceiling *int
	if raw := c.Query("ceiling"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "ceiling must be a positive semester number"))
			return
		}
		ceiling = &value
	}
	summary, err := h.transcripts.Summary(c.Request.Context(), claimsFromContext(c), c.Param("studentId"), ceiling)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// SemesterReport godoc
// @Summary Semester study result (KHS)
// @Tags Transcript
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param semester path int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/transcript/semesters/{semester} [get]
func (h *TranscriptHandler) SemesterReport(c *gin.Context) {
	semester, err := strconv.Atoi(c.Param("semester"))
	if err != nil || semester < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid semester"))
		return
	}
	report, err := h.transcripts.SemesterReport(c.Request.Context(), claimsFromContext(c), c.Param("studentId"), semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Download the transcript
// @Tags Transcript
// @Produce octet-stream
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param format query string false "csv or pdf" default(pdf)
// @Success 200 {file} file
// @Router /students/{studentId}/transcript/export [get]
func (h *TranscriptHandler) Export(c *gin.Context) {
	file, err := h.transcripts.Export(c.Request.Context(), claimsFromContext(c), c.Param("studentId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// PostGrade godoc
// @Summary Record a final grade
// @Tags Transcript
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.PostGradeRequest true "Grade"
// @Success 200 {object} response.Envelope
// @Router /grades [post]
func (h *TranscriptHandler) PostGrade(c *gin.Context) {
	var req dto.PostGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.transcripts.PostGrade(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
