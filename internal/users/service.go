package users

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/db"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

// Service resolves request identities onto persisted user records. Requests
// without an X-User-Id header fall back to the configured demo user; unknown
// ids are auto-provisioned as placeholder accounts.
type Service interface {
	Resolve(ctx context.Context, headerValue string) (string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo *Repository
	demo config.DemoUserConfig
	logg *logger.Logger
}

// NewService builds the identity resolution service.
func NewService(repo *Repository, demo config.DemoUserConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, demo: demo, logg: logg}, nil
}

func (s *service) Resolve(ctx context.Context, headerValue string) (string, error) {
	if headerValue == "" {
		user, err := s.ensureDemoUser(ctx)
		if err != nil {
			return "", err
		}
		return user.ID.String(), nil
	}

	id, err := uuid.Parse(headerValue)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id must be a valid uuid")
	}

	user, err := s.repo.FindByID(ctx, id)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.provision(ctx, id)
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve user")
	}
	return user.ID.String(), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) ensureDemoUser(ctx context.Context) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, s.demo.Email)
	if err == nil {
		return user, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load demo user")
	}

	created := &models.User{Email: s.demo.Email, DisplayName: s.demo.DisplayName}
	if createErr := s.repo.Create(ctx, created); createErr != nil {
		if db.IsUniqueViolation(createErr, "") {
			// lost a provisioning race, the winner's row is authoritative
			return s.repo.FindByEmail(ctx, s.demo.Email)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "provision demo user")
	}

	if s.logg != nil {
		s.logg.Info(ctx, "demo user provisioned")
	}
	return created, nil
}

func (s *service) provision(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{
		ID:          id,
		Email:       fmt.Sprintf("user-%s@example.com", id),
		DisplayName: s.demo.DisplayName,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.repo.FindByID(ctx, id)
		}
		return nil, err
	}
	return user, nil
}
