package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siakad-krs-api/internal/dto"
	"github.com/noah-isme/siakad-krs-api/internal/models"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
	"github.com/noah-isme/siakad-krs-api/pkg/response"
)

type krsService interface {
	ListOfferings(ctx context.Context, actor *models.JWTClaims, studentID, periodID string) ([]models.CourseOffering, error)
	List(ctx context.Context, actor *models.JWTClaims, studentID, periodID string) (*dto.KRSSummary, error)
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateKRSRequest) (*models.EnrollmentDetail, error)
	Delete(ctx context.Context, actor *models.JWTClaims, enrollmentID string) error
	Submit(ctx context.Context, actor *models.JWTClaims, req dto.KRSScopeRequest) (*dto.KRSTransitionResult, error)
}

type bulkEnrollmentService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.BulkKRSRequest) (*dto.BulkKRSResult, error)
}

// KRSHandler exposes the student-facing KRS endpoints and the admin bulk entry point.
type KRSHandler struct {
	krs  krsService
	bulk bulkEnrollmentService
}

// NewKRSHandler constructs KRSHandler.
func NewKRSHandler(krs krsService, bulk bulkEnrollmentService) *KRSHandler {
	return &KRSHandler{krs: krs, bulk: bulk}
}

// Offerings godoc
// @Summary List courses a student can take in a period
// @Tags KRS
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param periodId path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{studentId}/periods/{periodId}/offerings [get]
func (h *KRSHandler) Offerings(c *gin.Context) {
	offerings, err := h.krs.ListOfferings(c.Request.Context(), claimsFromContext(c), c.Param("studentId"), c.Param("periodId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}

// List godoc
// @Summary Show a student's KRS for a period
// @Tags KRS
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param periodId path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/periods/{periodId}/krs [get]
func (h *KRSHandler) List(c *gin.Context) {
	summary, err := h.krs.List(c.Request.Context(), claimsFromContext(c), c.Param("studentId"), c.Param("periodId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Create godoc
// @Summary Add a course to a KRS as DRAFT
// @Tags KRS
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateKRSRequest true "KRS entry"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /krs [post]
func (h *KRSHandler) Create(c *gin.Context) {
	var req dto.CreateKRSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.krs.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Delete godoc
// @Summary Remove a DRAFT or REJECTED KRS entry
// @Tags KRS
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /krs/{id} [delete]
func (h *KRSHandler) Delete(c *gin.Context) {
	if err := h.krs.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit a KRS for approval
// @Tags KRS
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.KRSScopeRequest true "Student and period"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /krs/submit [post]
func (h *KRSHandler) Submit(c *gin.Context) {
	var req dto.KRSScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.krs.Submit(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Bulk godoc
// @Summary Enroll many students into many courses as APPROVED
// @Tags KRS
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkKRSRequest true "Bulk selection"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /krs/bulk [post]
func (h *KRSHandler) Bulk(c *gin.Context) {
	var req dto.BulkKRSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.bulk.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		if result != nil {
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{Data: result, Error: appErr})
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
