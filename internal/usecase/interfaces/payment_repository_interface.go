package interfaces

import (
	"context"
	"crm_pipeline/internal/domain/entities"
)

// IPaymentRepository abstracts persistence for final-payment records.
type IPaymentRepository interface {
	Create(ctx context.Context, p entities.Payment) (entities.Payment, error)
	ListByJobID(ctx context.Context, jobID string) ([]entities.Payment, error)
}
