package interfaces

import (
	"context"
	"crm_pipeline/internal/domain/entities"
)

// ActivityFilter selects activities by job or by customer. JobID wins when both are set.
type ActivityFilter struct {
	JobID      string
	CustomerID string
	Limit      int
}

// IActivityRepository is the write-once audit log. There is no update or delete.
type IActivityRepository interface {
	Create(ctx context.Context, a entities.Activity) (entities.Activity, error)
	List(ctx context.Context, filter ActivityFilter) ([]entities.Activity, error)
}
