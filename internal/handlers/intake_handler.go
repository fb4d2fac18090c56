package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/services"
	"github.com/SAP-F-2025/result-review-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// GradingJobForm is the multipart form of a grading submission
type GradingJobForm struct {
	Guidelines   string `form:"guidelines"`
	StudentName  string `form:"student_name"`
	StudentLevel string `form:"student_level"`
	MatNo        string `form:"mat_no"`
	ExamTitle    string `form:"exam_title"`
	Subject      string `form:"subject"`
}

type IntakeHandler struct {
	BaseHandler
	intakeService  services.IntakeService
	gradingService services.GradingJobService
	maxUploadBytes int64
}

func NewIntakeHandler(
	intakeService services.IntakeService,
	gradingService services.GradingJobService,
	maxUploadBytes int64,
	logger utils.Logger,
) *IntakeHandler {
	return &IntakeHandler{
		BaseHandler:    NewBaseHandler(logger),
		intakeService:  intakeService,
		gradingService: gradingService,
		maxUploadBytes: maxUploadBytes,
	}
}

// IngestResult stores a finished result from the grading engine as pending
// @Summary Ingest graded result
// @Tags intake
// @Accept json
// @Produce json
// @Param result body services.IngestResultRequest true "Graded result"
// @Success 201 {object} models.IngestSummary
// @Failure 400 {object} ErrorResponse
// @Router /results [post]
func (h *IntakeHandler) IngestResult(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}

	var req services.IngestResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", nil, err.Error())
		return
	}

	summary, err := h.intakeService.IngestResult(c.Request.Context(), &req, principal.ActorID())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Result ingested", "result_id", summary.ResultID)
	c.JSON(http.StatusCreated, summary)
}

// SubmitGradingJob queues uploaded scripts for the grading engine
// @Summary Submit grading job
// @Tags intake
// @Accept multipart/form-data
// @Produce json
// @Param questions_file formData file true "Questions file"
// @Param answers_file formData file false "Answers file"
// @Param guidelines formData string false "Grading guidelines"
// @Success 202 {object} models.GradingJob
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /grading-jobs [post]
func (h *IntakeHandler) SubmitGradingJob(c *gin.Context) {
	principal := requirePrincipal(c)
	if principal == nil {
		return
	}

	if h.maxUploadBytes > 0 {
		// Both files plus form overhead.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*h.maxUploadBytes+1<<20)
	}

	var form GradingJobForm
	if err := c.ShouldBind(&form); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid form data", nil, err.Error())
		return
	}

	questionsName, questions, err := readFormFile(c, "questions_file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "questions_file is required", nil, err.Error())
		return
	}
	answersName, answers, err := readFormFile(c, "answers_file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid answers_file", nil, err.Error())
		return
	}

	req := &services.GradingJobRequest{
		Submission: services.GradingSubmission{
			QuestionsFilename: questionsName,
			Questions:         questions,
			AnswersFilename:   answersName,
			Answers:           answers,
			Guidelines:        form.Guidelines,
		},
	}
	if form.StudentName != "" || form.StudentLevel != "" || form.MatNo != "" {
		req.StudentInfo = &models.StudentInfo{Name: form.StudentName, Level: form.StudentLevel, MatNo: form.MatNo}
	}
	if form.ExamTitle != "" || form.Subject != "" {
		req.ExamInfo = &models.ExamInfo{ExamTitle: form.ExamTitle, Subject: form.Subject}
	}

	job, err := h.gradingService.Submit(c.Request.Context(), req, principal.ActorID())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Grading job queued", "job_id", job.ID)
	c.Header("Location", "/api/v1/grading-jobs/"+job.ID)
	c.JSON(http.StatusAccepted, job)
}

// GetGradingJob reports the observed state of a grading job
// @Summary Get grading job
// @Tags intake
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.GradingJob
// @Failure 404 {object} ErrorResponse
// @Router /grading-jobs/{id} [get]
func (h *IntakeHandler) GetGradingJob(c *gin.Context) {
	jobID := ParseStringIDParam(c, "id")
	if jobID == "" {
		return
	}

	job, err := h.gradingService.GetJob(c.Request.Context(), jobID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

func readFormFile(c *gin.Context, field string) (string, []byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	data, err := readUpload(header)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return strings.TrimSpace(header.Filename), data, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
