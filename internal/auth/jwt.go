package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/golang-jwt/jwt/v4"
)

// TokenClaims is the payload of HMAC tokens issued for this service.
type TokenClaims struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	MatNo string `json:"mat_no,omitempty"`
	jwt.RegisteredClaims
}

type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) (*JWTAuthenticator, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	return &JWTAuthenticator{secret: []byte(secret)}, nil
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, raw string) (*models.Principal, error) {
	claims := &TokenClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role, err := resolveRole(claims.Role)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &models.Principal{
		ID:    claims.Subject,
		Name:  claims.Name,
		Role:  role,
		MatNo: models.NormalizeMatNo(claims.MatNo),
	}, nil
}

// IssueToken signs a token for p. Used by tests and local tooling.
func (a *JWTAuthenticator) IssueToken(p models.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Name:  p.Name,
		Role:  string(p.Role),
		MatNo: p.MatNo,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
