package config

import (
	"log/slog"

	"github.com/SAP-F-2025/result-review-service/internal/auth"
)

// AuthConfig selects how bearer tokens are verified
type AuthConfig struct {
	Provider  string // jwt or casdoor
	JWTSecret string

	CasdoorEndpoint      string
	CasdoorClientID      string
	CasdoorClientSecret  string
	CasdoorCertificate   string
	CasdoorOrganization  string
	CasdoorApplication   string
	CasdoorMatNoProperty string
}

// CreateAuthenticator creates the token verifier based on configuration
func (c *AuthConfig) CreateAuthenticator(logger *slog.Logger) (auth.Authenticator, error) {
	switch c.Provider {
	case "casdoor":
		logger.Info("Using Casdoor token verification", "endpoint", c.CasdoorEndpoint)
		return auth.NewCasdoorAuthenticator(auth.CasdoorConfig{
			Endpoint:      c.CasdoorEndpoint,
			ClientID:      c.CasdoorClientID,
			ClientSecret:  c.CasdoorClientSecret,
			Certificate:   c.CasdoorCertificate,
			Organization:  c.CasdoorOrganization,
			Application:   c.CasdoorApplication,
			MatNoProperty: c.CasdoorMatNoProperty,
		})
	default:
		if c.Provider != "jwt" {
			logger.Warn("Unknown auth provider, falling back to jwt", "provider", c.Provider)
		}
		return auth.NewJWTAuthenticator(c.JWTSecret)
	}
}
