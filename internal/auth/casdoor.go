package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

type CasdoorConfig struct {
	Endpoint      string
	ClientID      string
	ClientSecret  string
	Certificate   string
	Organization  string
	Application   string
	MatNoProperty string
}

// CasdoorAuthenticator verifies tokens issued by the university Casdoor instance.
type CasdoorAuthenticator struct {
	client        *casdoorsdk.Client
	matNoProperty string
}

func NewCasdoorAuthenticator(cfg CasdoorConfig) (*CasdoorAuthenticator, error) {
	if cfg.Endpoint == "" || cfg.Certificate == "" {
		return nil, fmt.Errorf("casdoor endpoint and certificate are required")
	}
	return &CasdoorAuthenticator{
		client: casdoorsdk.NewClient(cfg.Endpoint, cfg.ClientID, cfg.ClientSecret,
			cfg.Certificate, cfg.Organization, cfg.Application),
		matNoProperty: cfg.MatNoProperty,
	}, nil
}

func (a *CasdoorAuthenticator) Authenticate(_ context.Context, raw string) (*models.Principal, error) {
	claims, err := a.client.ParseJwtToken(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	user := claims.User

	// Casdoor roles first, then the user type and tag as configured by admins.
	names := make([]string, 0, len(user.Roles)+2)
	for _, r := range user.Roles {
		if r != nil {
			names = append(names, r.Name)
		}
	}
	names = append(names, user.Type, user.Tag)
	role, err := resolveRole(names...)
	if err != nil {
		return nil, err
	}

	name := user.DisplayName
	if strings.TrimSpace(name) == "" {
		name = user.Name
	}
	id := user.Id
	if id == "" {
		id = user.Owner + "/" + user.Name
	}

	return &models.Principal{
		ID:    id,
		Name:  name,
		Role:  role,
		MatNo: models.NormalizeMatNo(user.Properties[a.matNoProperty]),
	}, nil
}
