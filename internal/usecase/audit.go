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

// SystemActor authors notes written by background processes when no user resolves.
const SystemActor = "system"

// auditTrail writes activities after the primary write has committed.
// Failures are logged and counted, never returned.
type auditTrail struct {
	repo    interfaces.IActivityRepository
	log     logger.Logger
	metrics *metrics.Metrics
}

func newAuditTrail(repo interfaces.IActivityRepository, log logger.Logger, m *metrics.Metrics) auditTrail {
	if log == nil {
		log = logger.NewNop()
	}
	return auditTrail{repo: repo, log: log, metrics: m}
}

func (a auditTrail) record(ctx context.Context, act entities.Activity, now time.Time) {
	if a.repo == nil {
		return
	}
	if strings.TrimSpace(act.CreatedBy) == "" {
		a.log.Warn("activity skipped: no acting user",
			logger.String("type", string(act.Type)),
			logger.String("job_id", act.JobID),
		)
		return
	}
	act.ID = uuid.NewString()
	act.CreatedAt = now
	if _, err := a.repo.Create(ctx, act); err != nil {
		a.metrics.ActivityEmitFailed(string(act.Type))
		a.log.Warn("activity emission failed",
			logger.String("type", string(act.Type)),
			logger.String("job_id", act.JobID),
			logger.String("customer_id", act.CustomerID),
			logger.Error(err),
		)
	}
}
