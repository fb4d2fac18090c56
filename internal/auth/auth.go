// Package auth verifies bearer tokens and turns their claims into a Principal.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/models"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownRole  = errors.New("token carries no known role")
)

// Authenticator verifies a raw token server-side.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Principal, error)
}

// ExtractBearer returns the token of an "Authorization: Bearer <token>" header.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[7:])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// resolveRole picks the first role name this service knows.
func resolveRole(names ...string) (models.UserRole, error) {
	for _, name := range names {
		if role, ok := models.ParseUserRole(name); ok {
			return role, nil
		}
	}
	return "", ErrUnknownRole
}
