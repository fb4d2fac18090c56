package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	principalKey = "principal"
	userIDKey    = "user_id"

	retryAfterSeconds = "2"
)

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
			Code:    "validation_error",
		})
		return ""
	}
	return idStr
}

// currentPrincipal returns the principal set by the auth middleware.
func currentPrincipal(c *gin.Context) *models.Principal {
	value, exists := c.Get(principalKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*models.Principal)
	return principal
}

// requirePrincipal writes a 401 and returns nil when the request is anonymous.
func requirePrincipal(c *gin.Context) *models.Principal {
	principal := currentPrincipal(c)
	if principal == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Code:    "unauthorized",
		})
	}
	return principal
}

func errorCodeFor(err error) string {
	return services.ErrorCode(err)
}

// handleServiceError maps service errors to HTTP responses in one place.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, businessRuleError.Message, err, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err, map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	var transitionError *services.TransitionError
	if errors.As(err, &transitionError) && errors.Is(err, services.ErrInvalidStateTransition) {
		h.RespondWithError(c, http.StatusConflict, "Invalid status transition", err, map[string]interface{}{
			"result_id": transitionError.ResultID,
			"from":      transitionError.From,
			"to":        transitionError.To,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrEmptySelection):
		h.RespondWithError(c, http.StatusBadRequest, "No results selected", err)
	case errors.Is(err, services.ErrUnauthorized):
		h.RespondWithError(c, http.StatusUnauthorized, "User not authenticated", err)
	case errors.Is(err, services.ErrForbidden):
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err)
	case errors.Is(err, services.ErrResultNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Result not found", err)
	case errors.Is(err, services.ErrGradingJobNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Grading job not found", err)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Resource not found", err)
	case errors.Is(err, services.ErrInvalidStateTransition):
		h.RespondWithError(c, http.StatusConflict, "Invalid status transition", err)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, "Resource conflict", err)
	case errors.Is(err, services.ErrGradingQueueFull):
		c.Header("Retry-After", retryAfterSeconds)
		h.RespondWithError(c, http.StatusServiceUnavailable, "Grading queue is full, try again later", err)
	case services.IsTransient(err):
		c.Header("Retry-After", retryAfterSeconds)
		h.RespondWithError(c, http.StatusServiceUnavailable, "Service temporarily unavailable, try again", err)
	case errors.Is(err, services.ErrGradingEngine):
		h.RespondWithError(c, http.StatusBadGateway, "Grading engine failed", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
