package memory

import "github.com/SAP-F-2025/result-review-service/internal/repositories"

type Repository struct {
	results *ResultStore
	jobs    *GradingJobStore
}

func NewRepository() *Repository {
	return &Repository{
		results: NewResultStore(),
		jobs:    NewGradingJobStore(),
	}
}

func (r *Repository) Result() repositories.ResultRepository {
	return r.results
}

func (r *Repository) GradingJob() repositories.GradingJobRepository {
	return r.jobs
}

// Results exposes the concrete store for seeding in tests.
func (r *Repository) Results() *ResultStore {
	return r.results
}
