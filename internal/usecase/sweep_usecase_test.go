package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm_pipeline/internal/adapter/persistence/memory"
	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/infrastructure/metrics"
	"crm_pipeline/internal/usecase/interfaces"
	mock_interfaces "crm_pipeline/internal/usecase/interfaces/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type sweepFixture struct {
	store   *memory.Store
	sweeper *SweepUseCase
}

func newSweepFixture(t *testing.T, lock interfaces.ISweepLock, m *metrics.Metrics) sweepFixture {
	t.Helper()
	store := memory.New()
	store.PutUser(entities.User{ID: "u-1", IsActive: true})
	resolver := NewActorResolver(store.Users(), nil)
	s := NewSweepUseCase(store.Jobs(), store.Activities(), resolver, lock, SweepConfig{}, nil, m)
	s.now = func() time.Time { return fixedNow }
	return sweepFixture{store: store, sweeper: s}
}

func (f sweepFixture) seed(t *testing.T, j entities.Job) {
	t.Helper()
	if j.CustomerID == "" {
		j.CustomerID = "cust-1"
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = j.UpdatedAt
	}
	_, err := f.store.Jobs().Create(context.Background(), j)
	require.NoError(t, err)
}

func (f sweepFixture) job(t *testing.T, id string) entities.Job {
	t.Helper()
	j, err := f.store.Jobs().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotEmpty(t, j.ID)
	return j
}

func (f sweepFixture) activities(t *testing.T, jobID string) []entities.Activity {
	t.Helper()
	acts, err := f.store.Activities().List(context.Background(), interfaces.ActivityFilter{JobID: jobID})
	require.NoError(t, err)
	return acts
}

func stageNotes(j entities.Job) int {
	n := 0
	for _, note := range j.Notes {
		if note.IsStageChange {
			n++
		}
	}
	return n
}

func TestSweep_AdvancesStaleEstimateOnce(t *testing.T) {
	f := newSweepFixture(t, nil, nil)
	f.seed(t, entities.Job{
		ID:        "stale",
		Stage:     entities.StageEstimateInProgress,
		CreatedBy: "u-1",
		UpdatedAt: fixedNow.Add(-6 * 24 * time.Hour),
	})

	res, err := f.sweeper.Sweep(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Advanced.Count)
	assert.Equal(t, []string{"stale"}, res.Advanced.JobIDs)
	assert.Empty(t, res.Failures)

	j := f.job(t, "stale")
	assert.Equal(t, entities.StageEstimateSent, j.Stage)
	require.NotNil(t, j.Estimate)
	require.NotNil(t, j.Estimate.SentAt)
	assert.True(t, j.Estimate.SentAt.Equal(fixedNow))
	require.Equal(t, 1, stageNotes(j))
	assert.Equal(t, "Stage updated: Estimate In Progress → Estimate Sent (auto-moved after 5 days)", j.Notes[0].Content)
	assert.Equal(t, "u-1", j.Notes[0].CreatedBy)

	acts := f.activities(t, "stale")
	require.Len(t, acts, 1)
	assert.Equal(t, entities.ActivityStageChange, acts[0].Type)
	assert.Equal(t, "Automatically moved to Estimate Sent after 5 days in Estimate In Progress", acts[0].Note)

	// The job is now in ESTIMATE_SENT with a fresh sentAt: neither pass matches.
	res, err = f.sweeper.Sweep(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Zero(t, res.Advanced.Count)
	assert.Zero(t, res.Archived.Count)

	j = f.job(t, "stale")
	assert.Equal(t, 1, stageNotes(j))
	assert.Len(t, f.activities(t, "stale"), 1)
}

func TestSweep_MarksOldSentEstimateDead(t *testing.T) {
	f := newSweepFixture(t, nil, nil)
	sentAt := fixedNow.Add(-10 * 24 * time.Hour)
	f.seed(t, entities.Job{
		ID:        "sent",
		Stage:     entities.StageEstimateSent,
		Estimate:  &entities.Estimate{Amount: 900, SentAt: &sentAt},
		CreatedBy: "u-1",
		UpdatedAt: sentAt,
	})

	res, err := f.sweeper.Sweep(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"sent"}, res.Archived.JobIDs)

	j := f.job(t, "sent")
	assert.True(t, j.IsDeadEstimate)
	require.NotNil(t, j.MovedToDeadEstimateAt)
	assert.True(t, j.MovedToDeadEstimateAt.Equal(fixedNow))
	assert.Equal(t, entities.StageEstimateSent, j.Stage)
	require.Len(t, j.Notes, 1)
	assert.Contains(t, j.Notes[0].Content, "no response after 5 days")

	acts := f.activities(t, "sent")
	require.Len(t, acts, 1)
	assert.Equal(t, entities.ActivityJobArchived, acts[0].Type)

	active, err := f.store.Jobs().Find(context.Background(), interfaces.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSweep_LeavesFreshJobsAlone(t *testing.T) {
	f := newSweepFixture(t, nil, nil)
	recent := fixedNow.Add(-2 * 24 * time.Hour)
	f.seed(t, entities.Job{ID: "fresh", Stage: entities.StageEstimateInProgress, CreatedBy: "u-1", UpdatedAt: recent})
	f.seed(t, entities.Job{ID: "fresh-sent", Stage: entities.StageEstimateSent, Estimate: &entities.Estimate{SentAt: &recent}, CreatedBy: "u-1", UpdatedAt: recent})
	f.seed(t, entities.Job{ID: "no-sent-at", Stage: entities.StageEstimateSent, CreatedBy: "u-1", UpdatedAt: fixedNow.Add(-30 * 24 * time.Hour)})
	old := fixedNow.Add(-30 * 24 * time.Hour)
	f.seed(t, entities.Job{ID: "archived", Stage: entities.StageEstimateInProgress, IsArchived: true, CreatedBy: "u-1", UpdatedAt: old})

	res, err := f.sweeper.Sweep(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Zero(t, res.Advanced.Count)
	assert.Zero(t, res.Archived.Count)

	j := f.job(t, "fresh")
	assert.Equal(t, entities.StageEstimateInProgress, j.Stage)
	assert.Empty(t, j.Notes)
	assert.Equal(t, entities.StageEstimateInProgress, f.job(t, "archived").Stage)
	assert.False(t, f.job(t, "no-sent-at").IsDeadEstimate)
}

func TestSweep_WithoutResolvableActor(t *testing.T) {
	store := memory.New()
	s := NewSweepUseCase(store.Jobs(), store.Activities(), NewActorResolver(store.Users(), nil), nil, SweepConfig{}, nil, nil)
	sentAt := fixedNow.Add(-10 * 24 * time.Hour)
	_, err := store.Jobs().Create(context.Background(), entities.Job{
		ID:         "orphan",
		CustomerID: "cust-1",
		Stage:      entities.StageEstimateSent,
		Estimate:   &entities.Estimate{SentAt: &sentAt},
		UpdatedAt:  sentAt,
	})
	require.NoError(t, err)

	res, err := s.Sweep(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Archived.Count)

	j, _ := store.Jobs().GetByID(context.Background(), "orphan")
	assert.True(t, j.IsDeadEstimate)
	require.Len(t, j.Notes, 1)
	assert.Equal(t, SystemActor, j.Notes[0].CreatedBy)

	acts, _ := store.Activities().List(context.Background(), interfaces.ActivityFilter{JobID: "orphan"})
	assert.Empty(t, acts)
}

func TestSweep_PerJobFailuresAreCollected(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mock_interfaces.NewMockIJobRepository(ctrl)
	s := NewSweepUseCase(jobs, nil, nil, nil, SweepConfig{}, nil, nil)

	stale := fixedNow.Add(-7 * 24 * time.Hour)
	jobs.EXPECT().Find(gomock.Any(), interfaces.JobFilter{Stage: entities.StageEstimateInProgress}).Return([]entities.Job{
		{ID: "a", Stage: entities.StageEstimateInProgress, CreatedBy: "u-1", UpdatedAt: stale},
		{ID: "b", Stage: entities.StageEstimateInProgress, CreatedBy: "u-1", UpdatedAt: stale},
	}, nil)
	jobs.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, j entities.Job) (entities.Job, error) {
		if j.ID == "a" {
			return entities.Job{}, errors.New("conditional write failed")
		}
		return j, nil
	}).Times(2)
	jobs.EXPECT().Find(gomock.Any(), interfaces.JobFilter{Stage: entities.StageEstimateSent}).Return(nil, nil)

	res, err := s.Sweep(context.Background(), fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Advanced.Count != 1 || res.Advanced.JobIDs[0] != "b" {
		t.Fatalf("unexpected advanced: %+v", res.Advanced)
	}
	if len(res.Failures) != 1 || res.Failures[0].JobID != "a" {
		t.Fatalf("unexpected failures: %+v", res.Failures)
	}
}

func TestSweep_QueryErrorAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mock_interfaces.NewMockIJobRepository(ctrl)
	s := NewSweepUseCase(jobs, nil, nil, nil, SweepConfig{}, nil, nil)

	jobs.EXPECT().Find(gomock.Any(), gomock.Any()).Return(nil, errors.New("scan failed"))

	if _, err := s.Sweep(context.Background(), fixedNow); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSweepUseCase_Run(t *testing.T) {
	t.Run("skips when the lock is held", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		lock := mock_interfaces.NewMockISweepLock(ctrl)
		m := metrics.New(prometheus.NewRegistry())
		f := newSweepFixture(t, lock, m)

		lock.EXPECT().TryLock(gomock.Any(), DefaultSweepLockKey, DefaultSweepLockTTL).Return("", false, nil)

		_, err := f.sweeper.Run(context.Background())
		if !errors.Is(err, ErrSweepInProgress) {
			t.Fatalf("expected ErrSweepInProgress, got %v", err)
		}
		if got := testutil.ToFloat64(m.SweepRuns.WithLabelValues(metrics.RunSkipped)); got != 1 {
			t.Fatalf("expected one skipped run, got %v", got)
		}
	})

	t.Run("lock error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		lock := mock_interfaces.NewMockISweepLock(ctrl)
		f := newSweepFixture(t, lock, nil)

		lock.EXPECT().TryLock(gomock.Any(), gomock.Any(), gomock.Any()).Return("", false, errors.New("redis down"))

		if _, err := f.sweeper.Run(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("sweeps and releases the lock", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		lock := mock_interfaces.NewMockISweepLock(ctrl)
		m := metrics.New(prometheus.NewRegistry())
		f := newSweepFixture(t, lock, m)
		f.seed(t, entities.Job{ID: "stale", Stage: entities.StageEstimateInProgress, CreatedBy: "u-1", UpdatedAt: fixedNow.Add(-8 * 24 * time.Hour)})

		gomock.InOrder(
			lock.EXPECT().TryLock(gomock.Any(), DefaultSweepLockKey, DefaultSweepLockTTL).Return("tok", true, nil),
			lock.EXPECT().Unlock(gomock.Any(), DefaultSweepLockKey, "tok").Return(nil),
		)

		res, err := f.sweeper.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Advanced.Count != 1 {
			t.Fatalf("expected one advanced job, got %+v", res)
		}
		if got := testutil.ToFloat64(m.SweepRuns.WithLabelValues(metrics.RunOK)); got != 1 {
			t.Fatalf("expected one ok run, got %v", got)
		}
		if got := testutil.ToFloat64(m.SweepJobs.WithLabelValues(metrics.PassAdvanced)); got != 1 {
			t.Fatalf("expected one advanced job metric, got %v", got)
		}
	})
}

func TestSweepUseCase_ThresholdText(t *testing.T) {
	cases := map[time.Duration]string{
		24 * time.Hour:     "1 day",
		5 * 24 * time.Hour: "5 days",
		36 * time.Hour:     "36h0m0s",
	}
	for d, want := range cases {
		s := NewSweepUseCase(nil, nil, nil, nil, SweepConfig{Threshold: d}, nil, nil)
		if got := s.thresholdText(); got != want {
			t.Fatalf("%v: expected %q, got %q", d, want, got)
		}
	}
}
