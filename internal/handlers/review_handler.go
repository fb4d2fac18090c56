package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"github.com/SAP-F-2025/result-review-service/internal/services"
	"github.com/SAP-F-2025/result-review-service/internal/utils"
	"github.com/SAP-F-2025/result-review-service/internal/validator"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReviewHandler struct {
	BaseHandler
	reviewService services.ReviewService
	exportService services.ExportService
	validator     *validator.Validator
}

func NewReviewHandler(
	reviewService services.ReviewService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler:   NewBaseHandler(logger),
		reviewService: reviewService,
		exportService: exportService,
		validator:     validator,
	}
}

// ListResults lists one approval partition
// @Summary List results by status
// @Tags review
// @Produce json
// @Param status query string false "pending, approved or rejected" default(pending)
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} services.ResultListResponse
// @Failure 400 {object} ErrorResponse
// @Router /review/results [get]
func (h *ReviewHandler) ListResults(c *gin.Context) {
	var query ResultListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}
	if err := h.validator.Validate(&query); err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := models.ApprovalPending
	if query.Status != "" {
		status = models.ApprovalStatus(query.Status)
	}
	page, pageSize := query.Page, query.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	response, err := h.reviewService.ListByStatus(c.Request.Context(), status, repositories.ResultFilters{
		Subject:   query.Subject,
		Search:    query.Search,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetResult returns one result with its full detail
// @Summary Get result
// @Tags review
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} models.GradedResult
// @Failure 404 {object} ErrorResponse
// @Router /review/results/{id} [get]
func (h *ReviewHandler) GetResult(c *gin.Context) {
	resultID := ParseStringIDParam(c, "id")
	if resultID == "" {
		return
	}

	result, err := h.reviewService.GetResult(c.Request.Context(), resultID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ApproveResult moves a pending result to approved
// @Summary Approve result
// @Tags review
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param decision body DecisionRequest false "Optional notes"
// @Success 200 {object} models.GradedResult
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /review/results/{id}/approve [post]
func (h *ReviewHandler) ApproveResult(c *gin.Context) {
	h.decide(c, models.ApprovalApproved)
}

// RejectResult moves a pending result to rejected; notes are required
// @Summary Reject result
// @Tags review
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param decision body DecisionRequest true "Rejection notes"
// @Success 200 {object} models.GradedResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /review/results/{id}/reject [post]
func (h *ReviewHandler) RejectResult(c *gin.Context) {
	h.decide(c, models.ApprovalRejected)
}

func (h *ReviewHandler) decide(c *gin.Context, target models.ApprovalStatus) {
	resultID := ParseStringIDParam(c, "id")
	if resultID == "" {
		return
	}
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}

	// Notes are optional: an empty body decodes to EOF whatever length was declared.
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", nil, err.Error())
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Deciding result", "result_id", resultID, "target_status", target)

	result, err := h.reviewService.Transition(c.Request.Context(), services.TransitionRequest{
		ResultID: resultID,
		Target:   target,
		ActorID:  principal.ActorID(),
		Notes:    req.Notes,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BulkApprove approves every listed pending result, best effort per record
// @Summary Bulk approve
// @Tags review
// @Accept json
// @Produce json
// @Param decision body BulkDecisionRequest true "Result IDs and optional notes"
// @Success 200 {object} services.BulkTransitionResult
// @Failure 400 {object} ErrorResponse
// @Router /review/results/bulk-approve [post]
func (h *ReviewHandler) BulkApprove(c *gin.Context) {
	h.bulkDecide(c, models.ApprovalApproved)
}

// BulkReject rejects every listed pending result, best effort per record
// @Summary Bulk reject
// @Tags review
// @Accept json
// @Produce json
// @Param decision body BulkDecisionRequest true "Result IDs and notes"
// @Success 200 {object} services.BulkTransitionResult
// @Failure 400 {object} ErrorResponse
// @Router /review/results/bulk-reject [post]
func (h *ReviewHandler) BulkReject(c *gin.Context) {
	h.bulkDecide(c, models.ApprovalRejected)
}

func (h *ReviewHandler) bulkDecide(c *gin.Context, target models.ApprovalStatus) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}

	var req BulkDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", nil, err.Error())
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Bulk deciding results", "count", len(req.ResultIDs), "target_status", target)

	report, err := h.reviewService.BulkTransition(c.Request.Context(), services.BulkTransitionRequest{
		ResultIDs: req.ResultIDs,
		Target:    target,
		ActorID:   principal.ActorID(),
		Notes:     req.Notes,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetStatistics returns counts, percentages and recent activity
// @Summary Review statistics
// @Tags review
// @Produce json
// @Success 200 {object} services.ReviewStatistics
// @Failure 503 {object} ErrorResponse
// @Router /review/statistics [get]
func (h *ReviewHandler) GetStatistics(c *gin.Context) {
	stats, err := h.reviewService.GetStatistics(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportResults downloads one partition as an Excel workbook
// @Summary Export results
// @Tags review
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "pending, approved or rejected" default(approved)
// @Success 200 {file} file
// @Router /review/results/export [get]
func (h *ReviewHandler) ExportResults(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}

	status := models.ApprovalStatus(c.DefaultQuery("status", string(models.ApprovalApproved)))
	data, err := h.exportService.ExportResultsXLSX(c.Request.Context(), status, principal.ActorID())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("results_%s_%s.xlsx", status, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
