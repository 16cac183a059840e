// Package scheduler triggers the estimate sweep on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"crm_pipeline/internal/infrastructure/logger"
	"crm_pipeline/internal/usecase"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSpec    = "@hourly"
	DefaultTimeout = 5 * time.Minute
)

// SweepScheduler runs ISweepUseCase.Run on every tick. Ticks never overlap
// inside one process; across processes the sweep lock decides.
type SweepScheduler struct {
	sweeper usecase.ISweepUseCase
	log     logger.Logger
	spec    string
	timeout time.Duration

	cron    *cron.Cron
	job     cron.Job
	entryID cron.EntryID

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates spec (standard 5-field or a descriptor such as "@every 30m").
func New(sweeper usecase.ISweepUseCase, spec string, timeout time.Duration, log logger.Logger) (*SweepScheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if spec == "" {
		spec = DefaultSpec
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	log = log.With(logger.String("component", "scheduler"))
	cl := cronLogger{log: log}
	s := &SweepScheduler{
		sweeper: sweeper,
		log:     log,
		spec:    spec,
		timeout: timeout,
		cron:    cron.New(cron.WithParser(parser), cron.WithLogger(cl)),
	}
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.tick))
	return s, nil
}

// Start registers the sweep and starts the cron loop.
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	id, err := s.cron.AddJob(s.spec, s.job)
	if err != nil {
		s.cancel()
		s.cancel = nil
		return err
	}
	s.entryID = id
	s.cron.Start()
	s.log.Info("sweep scheduler started", logger.String("spec", s.spec))
	return nil
}

// Stop cancels a running sweep and waits for it to return.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-s.cron.Stop().Done()
	s.log.Info("sweep scheduler stopped")
}

// Run blocks until ctx is done. Suited to an errgroup.
func (s *SweepScheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Next reports the next planned tick, zero before Start.
func (s *SweepScheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()
	return s.cron.Entry(id).Next
}

func (s *SweepScheduler) tick() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	res, err := s.sweeper.Run(ctx)
	switch {
	case errors.Is(err, usecase.ErrSweepInProgress):
		s.log.Debug("sweep tick skipped, lock held elsewhere")
	case err != nil:
		s.log.Error("sweep tick failed", logger.Error(err))
	default:
		s.log.Debug("sweep tick done",
			logger.Int("advanced", res.Advanced.Count),
			logger.Int("archived", res.Archived.Count),
		)
	}
}

// cronLogger routes the cron library's own messages into the service logger.
// Info lines go out at debug level.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		fields = append(fields, logger.Any("extra", kv[len(kv)-1]))
	}
	return fields
}
