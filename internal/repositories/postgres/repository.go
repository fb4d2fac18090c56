package postgres

import (
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"gorm.io/gorm"
)

type Repository struct {
	results repositories.ResultRepository
	jobs    repositories.GradingJobRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		results: NewResultPostgreSQL(db),
		jobs:    NewGradingJobPostgreSQL(db),
	}
}

func (r *Repository) Result() repositories.ResultRepository {
	return r.results
}

func (r *Repository) GradingJob() repositories.GradingJobRepository {
	return r.jobs
}
