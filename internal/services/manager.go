package services

import (
	"log/slog"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/cache"
	"github.com/SAP-F-2025/result-review-service/internal/events"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"github.com/SAP-F-2025/result-review-service/internal/validator"
	"github.com/prometheus/client_golang/prometheus"
)

// ServiceConfig carries the tunables shared by the review services.
type ServiceConfig struct {
	BulkConcurrency      int
	RecentActivityWindow time.Duration
	StudentCacheTTL      time.Duration
	Now                  func() time.Time
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.BulkConcurrency <= 0 {
		c.BulkConcurrency = 8
	}
	if c.RecentActivityWindow <= 0 {
		c.RecentActivityWindow = 7 * 24 * time.Hour
	}
	if c.StudentCacheTTL <= 0 {
		c.StudentCacheTTL = 5 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// ServiceManager exposes every service to the handler layer.
type ServiceManager interface {
	Review() ReviewService
	Intake() IntakeService
	StudentResults() StudentResultsService
	Export() ExportService
	GradingJobs() GradingJobService
}

type Dependencies struct {
	Repo           repositories.Repository
	Cache          cache.CacheService
	EventPublisher events.EventPublisher
	Engine         GradingEngine
	Validator      *validator.Validator
	Registerer     prometheus.Registerer
	Logger         *slog.Logger
	Config         ServiceConfig
	Grading        GradingJobConfig
}

type serviceManager struct {
	review         ReviewService
	intake         IntakeService
	studentResults StudentResultsService
	export         ExportService
	gradingJobs    GradingJobService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopCache()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	cfg := deps.Config.withDefaults()

	metrics := NewReviewMetrics(deps.Registerer)
	eventService := NewReviewEventService(deps.EventPublisher, deps.Logger)
	intake := NewIntakeService(deps.Repo, eventService, deps.Logger, deps.Validator, cfg)
	studentResults := NewStudentResultsService(deps.Repo, deps.Cache, deps.Logger, cfg)

	return &serviceManager{
		review:         NewReviewService(deps.Repo, deps.Cache, eventService, metrics, deps.Logger, cfg),
		intake:         intake,
		studentResults: studentResults,
		export:         NewExportService(deps.Repo, studentResults, deps.Logger),
		gradingJobs:    NewGradingJobService(deps.Repo, deps.Engine, intake, metrics, deps.Logger, deps.Grading, cfg),
	}
}

func (m *serviceManager) Review() ReviewService                 { return m.review }
func (m *serviceManager) Intake() IntakeService                 { return m.intake }
func (m *serviceManager) StudentResults() StudentResultsService { return m.studentResults }
func (m *serviceManager) Export() ExportService                 { return m.export }
func (m *serviceManager) GradingJobs() GradingJobService        { return m.gradingJobs }
