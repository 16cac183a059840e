package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/infrastructure/logger"
	"crm_pipeline/internal/infrastructure/metrics"
	"crm_pipeline/internal/usecase/interfaces"
)

const (
	DefaultSweepThreshold = 5 * 24 * time.Hour
	DefaultSweepLockKey   = "crm:sweep:lock"
	DefaultSweepLockTTL   = 10 * time.Minute
)

// ErrSweepInProgress is returned by Run when another sweep holds the lock.
var ErrSweepInProgress = errors.New("sweep already in progress")

// ISweepUseCase ages stale estimates.
//
//   - Pass A: ESTIMATE_IN_PROGRESS untouched for the threshold moves to ESTIMATE_SENT
//   - Pass B: ESTIMATE_SENT with sentAt older than the threshold becomes a dead estimate
type ISweepUseCase interface {
	Sweep(ctx context.Context, now time.Time) (SweepResult, error)
	Run(ctx context.Context) (SweepResult, error)
}

type SweepConfig struct {
	Threshold time.Duration
	LockKey   string
	LockTTL   time.Duration
}

type SweepPass struct {
	Count  int      `json:"count"`
	JobIDs []string `json:"jobIds"`
}

type SweepFailure struct {
	JobID string `json:"jobId"`
	Error string `json:"error"`
}

type SweepResult struct {
	Advanced SweepPass      `json:"advanced"`
	Archived SweepPass      `json:"archived"`
	Failures []SweepFailure `json:"failures"`
}

func (r *SweepResult) fail(jobID string, err error) {
	r.Failures = append(r.Failures, SweepFailure{JobID: jobID, Error: err.Error()})
}

type SweepUseCase struct {
	jobs     interfaces.IJobRepository
	resolver IActorResolver
	lock     interfaces.ISweepLock
	audit    auditTrail
	log      logger.Logger
	metrics  *metrics.Metrics
	cfg      SweepConfig
	now      func() time.Time
}

var _ ISweepUseCase = (*SweepUseCase)(nil)

// NewSweepUseCase builds the sweeper. lock may be nil for single-instance deployments.
func NewSweepUseCase(
	jobs interfaces.IJobRepository,
	activities interfaces.IActivityRepository,
	resolver IActorResolver,
	lock interfaces.ISweepLock,
	cfg SweepConfig,
	log logger.Logger,
	m *metrics.Metrics,
) *SweepUseCase {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultSweepThreshold
	}
	if cfg.LockKey == "" {
		cfg.LockKey = DefaultSweepLockKey
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultSweepLockTTL
	}
	log = log.With(logger.String("component", "sweeper"))
	return &SweepUseCase{
		jobs:     jobs,
		resolver: resolver,
		lock:     lock,
		audit:    newAuditTrail(activities, log, m),
		log:      log,
		metrics:  m,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sweep runs both passes against now. Per-job failures are reported in the
// result; only a failing query aborts the sweep.
func (s *SweepUseCase) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	res := SweepResult{
		Advanced: SweepPass{JobIDs: []string{}},
		Archived: SweepPass{JobIDs: []string{}},
		Failures: []SweepFailure{},
	}
	cutoff := now.Add(-s.cfg.Threshold)

	inProgress, err := s.jobs.Find(ctx, interfaces.JobFilter{Stage: entities.StageEstimateInProgress})
	if err != nil {
		return res, fmt.Errorf("sweep: load in-progress estimates: %w", err)
	}
	for _, j := range inProgress {
		if j.Stage != entities.StageEstimateInProgress || !j.IsActive() || j.LastTouchedAt().After(cutoff) {
			continue
		}
		if err := s.advance(ctx, j, now); err != nil {
			s.log.Warn("sweep advance failed", logger.String("job_id", j.ID), logger.Error(err))
			res.fail(j.ID, err)
			continue
		}
		res.Advanced.JobIDs = append(res.Advanced.JobIDs, j.ID)
	}
	res.Advanced.Count = len(res.Advanced.JobIDs)

	sent, err := s.jobs.Find(ctx, interfaces.JobFilter{Stage: entities.StageEstimateSent})
	if err != nil {
		return res, fmt.Errorf("sweep: load sent estimates: %w", err)
	}
	for _, j := range sent {
		if j.Stage != entities.StageEstimateSent || !j.IsActive() {
			continue
		}
		if j.Estimate == nil || j.Estimate.SentAt == nil || j.Estimate.SentAt.After(cutoff) {
			continue
		}
		if err := s.archive(ctx, j, now); err != nil {
			s.log.Warn("sweep archive failed", logger.String("job_id", j.ID), logger.Error(err))
			res.fail(j.ID, err)
			continue
		}
		res.Archived.JobIDs = append(res.Archived.JobIDs, j.ID)
	}
	res.Archived.Count = len(res.Archived.JobIDs)

	return res, nil
}

func (s *SweepUseCase) advance(ctx context.Context, j entities.Job, now time.Time) error {
	actor := s.actorFor(ctx, j)
	author := actor
	if author == "" {
		author = SystemActor
	}

	from := j.Stage
	to := entities.StageEstimateSent
	if j.Estimate == nil {
		j.Estimate = &entities.Estimate{}
	}
	sentAt := now
	j.Estimate.SentAt = &sentAt
	applyStageMove(&j, to, fmt.Sprintf("%s (auto-moved after %s)", stageNote(from, to), s.thresholdText()), author, now)

	saved, err := s.jobs.Save(ctx, j)
	if err != nil {
		return err
	}

	note := fmt.Sprintf("Automatically moved to %s after %s in %s", to.Label(), s.thresholdText(), from.Label())
	s.audit.record(ctx, stageChangeActivity(saved, from, to, note, actor), now)
	return nil
}

func (s *SweepUseCase) archive(ctx context.Context, j entities.Job, now time.Time) error {
	actor := s.actorFor(ctx, j)
	author := actor
	if author == "" {
		author = SystemActor
	}

	deadAt := now
	j.IsDeadEstimate = true
	j.MovedToDeadEstimateAt = &deadAt
	j.Notes = append(j.Notes, newNote(
		fmt.Sprintf("Job auto-archived on %s - no response after %s", now.Format(time.RFC3339), s.thresholdText()),
		author, now,
	))
	j.UpdatedAt = now
	j.Version++

	saved, err := s.jobs.Save(ctx, j)
	if err != nil {
		return err
	}

	// No resolvable author means no activity; the flag change stands.
	if actor != "" {
		s.audit.record(ctx, entities.Activity{
			Type:       entities.ActivityJobArchived,
			JobID:      saved.ID,
			CustomerID: saved.CustomerID,
			FromStage:  saved.Stage,
			Note:       fmt.Sprintf("Estimate marked dead after %s without response", s.thresholdText()),
			CreatedBy:  actor,
		}, now)
	}
	return nil
}

func (s *SweepUseCase) actorFor(ctx context.Context, j entities.Job) string {
	if s.resolver == nil {
		return j.CreatedBy
	}
	actor, err := s.resolver.Resolve(ctx, "", j.CreatedBy)
	if err != nil {
		if !errors.Is(err, ErrMissingActor) {
			s.log.Warn("sweep actor lookup failed", logger.String("job_id", j.ID), logger.Error(err))
		}
		return ""
	}
	return actor
}

func (s *SweepUseCase) thresholdText() string {
	day := 24 * time.Hour
	if s.cfg.Threshold%day == 0 {
		n := int(s.cfg.Threshold / day)
		if n == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", n)
	}
	return s.cfg.Threshold.String()
}

// Run is the scheduler entry point: one lock-guarded sweep at the current time.
func (s *SweepUseCase) Run(ctx context.Context) (SweepResult, error) {
	if s.lock != nil {
		token, ok, err := s.lock.TryLock(ctx, s.cfg.LockKey, s.cfg.LockTTL)
		if err != nil {
			s.metrics.SweepFinished(metrics.RunError, 0, 0, 0, 0)
			return SweepResult{}, fmt.Errorf("sweep: acquire lock: %w", err)
		}
		if !ok {
			s.metrics.SweepSkipped()
			s.log.Info("sweep skipped: lock held elsewhere")
			return SweepResult{}, ErrSweepInProgress
		}
		defer func() {
			if err := s.lock.Unlock(context.WithoutCancel(ctx), s.cfg.LockKey, token); err != nil {
				s.log.Warn("sweep lock release failed", logger.Error(err))
			}
		}()
	}

	start := time.Now()
	res, err := s.Sweep(ctx, s.now())
	took := time.Since(start)

	result := metrics.RunOK
	switch {
	case err != nil:
		result = metrics.RunError
	case len(res.Failures) > 0:
		result = metrics.RunPartial
	}
	s.metrics.SweepFinished(result, res.Advanced.Count, res.Archived.Count, len(res.Failures), took)

	if err != nil {
		s.log.Error("sweep failed", logger.Error(err), logger.Duration("took", took))
		return res, err
	}
	s.log.Info("sweep finished",
		logger.Int("advanced", res.Advanced.Count),
		logger.Int("archived", res.Archived.Count),
		logger.Int("failures", len(res.Failures)),
		logger.Duration("took", took),
	)
	return res, nil
}
