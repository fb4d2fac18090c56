package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/services"
	"github.com/SAP-F-2025/result-review-service/internal/utils"
	"github.com/SAP-F-2025/result-review-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type StudentHandler struct {
	BaseHandler
	studentService services.StudentResultsService
	exportService  services.ExportService
	validator      *validator.Validator
}

func NewStudentHandler(
	studentService services.StudentResultsService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *StudentHandler {
	return &StudentHandler{
		BaseHandler:    NewBaseHandler(logger),
		studentService: studentService,
		exportService:  exportService,
		validator:      validator,
	}
}

// GetResults returns the approved results of one student
// @Summary Student results
// @Description Students may only read their own mat number; lecturers may read any.
// @Tags students
// @Produce json
// @Param mat_no path string true "Matriculation number, URL encoded"
// @Success 200 {object} services.StudentResultsResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /students/{mat_no}/results [get]
func (h *StudentHandler) GetResults(c *gin.Context) {
	matNo := ParseStringIDParam(c, "mat_no")
	if matNo == "" {
		return
	}

	var query services.StudentResultsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}
	if err := h.validator.Validate(&query); err != nil {
		h.handleServiceError(c, err)
		return
	}

	response, err := h.studentService.GetStudentResults(c.Request.Context(), currentPrincipal(c), matNo, query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ExportResults downloads the student's approved results as CSV
// @Summary Export student results
// @Tags students
// @Produce text/csv
// @Param mat_no path string true "Matriculation number, URL encoded"
// @Success 200 {file} file
// @Router /students/{mat_no}/results/export [get]
func (h *StudentHandler) ExportResults(c *gin.Context) {
	matNo := ParseStringIDParam(c, "mat_no")
	if matNo == "" {
		return
	}

	data, err := h.exportService.ExportStudentResultsCSV(c.Request.Context(), currentPrincipal(c), matNo)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("results_%s.csv", strings.NewReplacer("/", "_", "\\", "_").Replace(matNo))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
