package postgres

import (
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"gorm.io/gorm"
)

// sortColumns whitelists the sortable keys; summary fields live in jsonb.
var sortColumns = map[string]string{
	"created_at":   "created_at",
	"exam_title":   "exam_title",
	"percentage":   "(summary->>'percentage')::numeric",
	"total_score":  "(summary->>'total_score')::numeric",
	"letter_grade": "summary->>'letter_grade'",
}

type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyResultFilters applies the optional subject, search and date filters.
func (h *SharedHelpers) ApplyResultFilters(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	if subject := strings.TrimSpace(filters.Subject); subject != "" {
		query = query.Where("LOWER(subject) = LOWER(?)", subject)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query = query.Where("(exam_title ILIKE ? OR subject ILIKE ?)", pattern, pattern)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort orders by a whitelisted column with id as tie breaker.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = sortColumns["created_at"]
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	query = query.Order(column + " " + direction).Order("id " + direction)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
