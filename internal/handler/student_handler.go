package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siakad-krs-api/internal/models"
	"github.com/noah-isme/siakad-krs-api/pkg/response"
)

type directoryService interface {
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	ListPeriods(ctx context.Context) ([]models.AcademicPeriod, error)
	ActivePeriod(ctx context.Context) (*models.AcademicPeriod, error)
}

// DirectoryHandler exposes student and period lookups.
type DirectoryHandler struct {
	directory directoryService
}

// NewDirectoryHandler constructs DirectoryHandler.
func NewDirectoryHandler(directory directoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// ListStudents godoc
// @Summary List active students
// @Tags Directory
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search NIM or name"
// @Param program_id query string false "Program"
// @Param semester query int false "Semester"
// @Param is_mbkm query bool false "MBKM track"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *DirectoryHandler) ListStudents(c *gin.Context) {
	filter := models.StudentFilter{
		Search:    c.Query("q"),
		ProgramID: c.Query("program_id"),
	}
	if semester, err := strconv.Atoi(c.Query("semester")); err == nil {
		filter.Semester = semester
	}
	if raw := c.Query("is_mbkm"); raw != "" {
		mbkm := strings.EqualFold(raw, "true") || raw == "1"
		filter.IsMBKM = &mbkm
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	students, pagination, err := h.directory.ListStudents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// GetStudent godoc
// @Summary Get a student
// @Tags Directory
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId} [get]
func (h *DirectoryHandler) GetStudent(c *gin.Context) {
	student, err := h.directory.GetStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ListPeriods godoc
// @Summary List academic periods
// @Tags Directory
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /periods [get]
func (h *DirectoryHandler) ListPeriods(c *gin.Context) {
	periods, err := h.directory.ListPeriods(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// ActivePeriod godoc
// @Summary Period currently open for registration
// @Tags Directory
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /periods/active [get]
func (h *DirectoryHandler) ActivePeriod(c *gin.Context) {
	period, err := h.directory.ActivePeriod(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}
