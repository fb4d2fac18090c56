package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/auth"
	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthMiddleware verifies the bearer token and stores the principal. Roles and
// matriculation numbers only ever come from the verified token.
func AuthMiddleware(authenticator auth.Authenticator, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
				Code:    "unauthorized",
			})
			return
		}

		principal, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			logger.Warn("Token verification failed",
				"request_id", c.GetString(utils.RequestIDKey),
				"path", c.Request.URL.Path,
				"error", err)

			message := "Invalid or expired token"
			if errors.Is(err, auth.ErrUnknownRole) {
				message = "Token carries no known role"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: message,
				Code:    "unauthorized",
			})
			return
		}

		c.Set(principalKey, principal)
		c.Set(userIDKey, principal.ID)
		c.Next()
	}
}

// RequireRole rejects principals whose role is not listed.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := requirePrincipal(c)
		if principal == nil {
			return
		}
		if !principal.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Access denied",
				Details: map[string]interface{}{"role": principal.Role},
				Code:    "forbidden",
			})
			return
		}
		c.Next()
	}
}

// ===== METRICS =====

type MetricsBuilder struct {
	summaryVec *prometheus.SummaryVec
	counterVec *prometheus.CounterVec
}

func NewMetricsBuilder(reg prometheus.Registerer) *MetricsBuilder {
	factory := promauto.With(reg)

	summaryVec := factory.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.95: 0.005,
				0.99: 0.001,
			},
		},
		[]string{"method", "path", "status_code"},
	)

	counterVec := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	return &MetricsBuilder{
		summaryVec: summaryVec,
		counterVec: counterVec,
	}
}

func (m *MetricsBuilder) Build() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		// Route templates keep mat numbers and ids out of the label set.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(c.Writer.Status())

		m.summaryVec.WithLabelValues(method, path, statusCode).Observe(duration)
		m.counterVec.WithLabelValues(method, path, statusCode).Inc()
	}
}
