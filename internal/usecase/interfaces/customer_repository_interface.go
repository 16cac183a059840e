package interfaces

import (
	"context"
	"crm_pipeline/internal/domain/entities"
)

type ICustomerRepository interface {
	Create(ctx context.Context, c entities.Customer) (entities.Customer, error)
	GetByID(ctx context.Context, id string) (entities.Customer, error)
}

// IUserDirectory is the read-only user lookup used to attribute audit records.
// Both methods return a zero User and nil error when nothing matches.
type IUserDirectory interface {
	GetByID(ctx context.Context, id string) (entities.User, error)
	FindAnyActive(ctx context.Context) (entities.User, error)
}
