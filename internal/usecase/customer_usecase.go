package usecase

import (
	"context"
	"strings"
	"time"

	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/infrastructure/logger"
	"crm_pipeline/internal/infrastructure/metrics"
	"crm_pipeline/internal/usecase/interfaces"

	"github.com/google/uuid"
)

type CreateCustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type ICustomerUseCase interface {
	Create(ctx context.Context, in CreateCustomerInput, actor string) (entities.Customer, error)
	GetByID(ctx context.Context, id string) (entities.Customer, error)
}

type CustomerUseCase struct {
	repo  interfaces.ICustomerRepository
	audit auditTrail
	now   func() time.Time
}

var _ ICustomerUseCase = (*CustomerUseCase)(nil)

func NewCustomerUseCase(repo interfaces.ICustomerRepository, activities interfaces.IActivityRepository, log logger.Logger, m *metrics.Metrics) *CustomerUseCase {
	return &CustomerUseCase{
		repo:  repo,
		audit: newAuditTrail(activities, log, m),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (u *CustomerUseCase) Create(ctx context.Context, in CreateCustomerInput, actor string) (entities.Customer, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return entities.Customer{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return entities.Customer{}, NewValidationError("name", "is required")
	}

	now := u.now()
	c, err := u.repo.Create(ctx, entities.Customer{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		CreatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return entities.Customer{}, err
	}

	u.audit.record(ctx, entities.Activity{
		Type:       entities.ActivityCustomerCreated,
		CustomerID: c.ID,
		Note:       "Customer created: " + c.Name,
		CreatedBy:  actor,
	}, now)
	return c, nil
}

func (u *CustomerUseCase) GetByID(ctx context.Context, id string) (entities.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.Customer{}, ErrInvalidCustomerID
	}
	c, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return entities.Customer{}, err
	}
	if c.ID == "" {
		return entities.Customer{}, ErrCustomerNotFound
	}
	return c, nil
}
