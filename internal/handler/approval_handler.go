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

type approvalService interface {
	ListPending(ctx context.Context, filter dto.PendingKRSFilter) ([]models.PendingApproval, error)
	Review(ctx context.Context, studentID, periodID string) (*dto.KRSSummary, error)
	Approve(ctx context.Context, actor *models.JWTClaims, req dto.KRSScopeRequest) (*dto.KRSTransitionResult, error)
	Reject(ctx context.Context, actor *models.JWTClaims, req dto.KRSScopeRequest) (*dto.KRSTransitionResult, error)
}

// ApprovalHandler exposes the admin approval queue.
type ApprovalHandler struct {
	approvals approvalService
}

// NewApprovalHandler constructs ApprovalHandler.
func NewApprovalHandler(approvals approvalService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals}
}

// Pending godoc
// @Summary List students waiting for KRS approval
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param period_id query string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /approvals [get]
func (h *ApprovalHandler) Pending(c *gin.Context) {
	var filter dto.PendingKRSFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	pending, err := h.approvals.ListPending(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// Review godoc
// @Summary Show a submitted KRS
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param periodId path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /approvals/{studentId}/{periodId} [get]
func (h *ApprovalHandler) Review(c *gin.Context) {
	summary, err := h.approvals.Review(c.Request.Context(), c.Param("studentId"), c.Param("periodId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Approve godoc
// @Summary Approve every submitted record of a KRS
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param periodId path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /approvals/{studentId}/{periodId}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	h.decide(c, h.approvals.Approve)
}

// Reject godoc
// @Summary Reject every submitted record of a KRS
// @Tags Approvals
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param periodId path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /approvals/{studentId}/{periodId}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	h.decide(c, h.approvals.Reject)
}

func (h *ApprovalHandler) decide(c *gin.Context, fn func(context.Context, *models.JWTClaims, dto.KRSScopeRequest) (*dto.KRSTransitionResult, error)) {
	req := dto.KRSScopeRequest{StudentID: c.Param("studentId"), PeriodID: c.Param("periodId")}
	result, err := fn(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
