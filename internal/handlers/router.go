package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/auth"
	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/services"
	"github.com/SAP-F-2025/result-review-service/internal/utils"
	"github.com/SAP-F-2025/result-review-service/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck is a named dependency check for /health.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Authenticator  auth.Authenticator
	Registerer     prometheus.Registerer
	Gatherer       prometheus.Gatherer
	MaxUploadBytes int64
	HealthChecks   map[string]HealthCheck
}

type HandlerManager struct {
	reviewHandler  *ReviewHandler
	studentHandler *StudentHandler
	intakeHandler  *IntakeHandler

	authenticator auth.Authenticator
	metrics       *MetricsBuilder
	gatherer      prometheus.Gatherer
	healthChecks  map[string]HealthCheck
	logger        utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	config RouterConfig,
) *HandlerManager {
	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &HandlerManager{
		reviewHandler:  NewReviewHandler(serviceManager.Review(), serviceManager.Export(), validator, logger),
		studentHandler: NewStudentHandler(serviceManager.StudentResults(), serviceManager.Export(), validator, logger),
		intakeHandler:  NewIntakeHandler(serviceManager.Intake(), serviceManager.GradingJobs(), config.MaxUploadBytes, logger),
		authenticator:  config.Authenticator,
		metrics:        NewMetricsBuilder(config.Registerer),
		gatherer:       gatherer,
		healthChecks:   config.HealthChecks,
		logger:         logger,
	}
}

// NewRouter builds the gin engine with the shared middleware chain.
func (hm *HandlerManager) NewRouter() *gin.Engine {
	router := gin.New()
	// Mat numbers contain "/" and arrive percent encoded in the path.
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.Use(
		gin.Recovery(),
		utils.RequestID(),
		utils.LoggerMiddleware(hm.logger),
		utils.ContextLogger(hm.logger),
		hm.metrics.Build(),
	)
	hm.SetupRoutes(router)
	return router
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(hm.gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(hm.authenticator, hm.logger))
	{
		// Grading collaborator intake
		v1.POST("/results", RequireRole(models.RoleGrader, models.RoleLecturer), hm.intakeHandler.IngestResult)

		gradingJobs := v1.Group("/grading-jobs", RequireRole(models.RoleLecturer))
		{
			gradingJobs.POST("", hm.intakeHandler.SubmitGradingJob)
			gradingJobs.GET("/:id", hm.intakeHandler.GetGradingJob)
		}

		// Lecturer review
		review := v1.Group("/review", RequireRole(models.RoleLecturer))
		{
			review.GET("/statistics", hm.reviewHandler.GetStatistics)

			results := review.Group("/results")
			{
				results.GET("", hm.reviewHandler.ListResults)
				results.GET("/export", hm.reviewHandler.ExportResults)
				results.POST("/bulk-approve", hm.reviewHandler.BulkApprove)
				results.POST("/bulk-reject", hm.reviewHandler.BulkReject)
				results.GET("/:id", hm.reviewHandler.GetResult)
				results.POST("/:id/approve", hm.reviewHandler.ApproveResult)
				results.POST("/:id/reject", hm.reviewHandler.RejectResult)
			}
		}

		// Student view; ownership is checked by the service
		students := v1.Group("/students", RequireRole(models.RoleStudent, models.RoleLecturer))
		{
			students.GET("/:mat_no/results", hm.studentHandler.GetResults)
			students.GET("/:mat_no/results/export", hm.studentHandler.ExportResults)
		}
	}
}

// Health reports the service status and every configured dependency check.
func (hm *HandlerManager) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(hm.healthChecks))
	for name, check := range hm.healthChecks {
		if err := check(ctx); err != nil {
			hm.logger.Warn("Health check failed", "check", name, "error", err)
			checks[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  overall,
		"service": "result-review-service",
		"checks":  checks,
	})
}
