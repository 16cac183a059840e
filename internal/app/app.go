// Package app wires configuration, persistence, use cases and transports into
// a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"crm_pipeline/internal/adapter/http/handlers"
	"crm_pipeline/internal/adapter/http/middleware"
	"crm_pipeline/internal/adapter/http/routes"
	"crm_pipeline/internal/adapter/persistence/memory"
	"crm_pipeline/internal/adapter/persistence/repository"
	"crm_pipeline/internal/config"
	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/infrastructure/database"
	"crm_pipeline/internal/infrastructure/lock"
	"crm_pipeline/internal/infrastructure/logger"
	"crm_pipeline/internal/infrastructure/metrics"
	"crm_pipeline/internal/infrastructure/payments"
	"crm_pipeline/internal/infrastructure/scheduler"
	"crm_pipeline/internal/usecase"
	"crm_pipeline/internal/usecase/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// App holds every long-lived dependency of the service.
type App struct {
	cfg      *config.Config
	log      logger.Logger
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	redis    *redis.Client

	Jobs      usecase.IJobUseCase
	Customers usecase.ICustomerUseCase
	Payments  usecase.IPaymentUseCase
	Sweeper   usecase.ISweepUseCase
	Actors    usecase.IActorResolver
}

// Options overrides infrastructure normally built from configuration.
type Options struct {
	// DynamoDB replaces the client built from cfg.AWS.
	DynamoDB repository.DynamoAPI
	// Store replaces the memory store built for the memory driver.
	Store *memory.Store
}

type repositories struct {
	jobs       interfaces.IJobRepository
	activities interfaces.IActivityRepository
	customers  interfaces.ICustomerRepository
	users      interfaces.IUserDirectory
	payments   interfaces.IPaymentRepository
}

// New builds the application. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	repos, err := newRepositories(ctx, cfg, opts, log)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, metrics: m, registry: registry}

	var sweepLock interfaces.ISweepLock
	if cfg.Redis.Enabled() {
		client, err := lock.NewClient(lock.Config{Address: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		sweepLock = lock.NewRedisLock(client)
		log.Info("sweep lock enabled", logger.String("redis_address", cfg.Redis.Address))
	} else {
		log.Info("sweep lock disabled, running single instance")
	}

	var gateway interfaces.IPaymentGateway
	if !cfg.Payments.Mock {
		mp, err := payments.NewMercadoPagoGateway(cfg.Payments.AccessToken, log)
		if err != nil {
			log.Warn("Mercado Pago gateway not configured", logger.Error(err))
		} else {
			gateway = mp
		}
	}

	jobs := usecase.NewJobUseCase(repos.jobs, repos.customers, repos.activities, log, m)
	a.Jobs = jobs
	a.Customers = usecase.NewCustomerUseCase(repos.customers, repos.activities, log, m)
	a.Actors = usecase.NewActorResolver(repos.users, log)
	a.Payments = usecase.NewPaymentUseCase(repos.payments, jobs, gateway, repos.activities, usecase.PaymentConfig{
		Mock:            cfg.Payments.Mock,
		AccessToken:     cfg.Payments.AccessToken,
		TestPayerEmail:  cfg.Payments.TestPayerEmail,
		TestPayerUserID: cfg.Payments.TestPayerUserID,
	}, log, m)
	a.Sweeper = usecase.NewSweepUseCase(repos.jobs, repos.activities, a.Actors, sweepLock, usecase.SweepConfig{
		Threshold: cfg.Sweep.Threshold,
		LockKey:   cfg.Sweep.LockKey,
		LockTTL:   cfg.Sweep.LockTTL,
	}, log, m)

	return a, nil
}

func newRepositories(ctx context.Context, cfg *config.Config, opts Options, log logger.Logger) (repositories, error) {
	if cfg.Store.Driver == config.DriverMemory {
		store := opts.Store
		if store == nil {
			store = memory.New()
		}
		if id := cfg.Store.SeedUserID; id != "" {
			store.PutUser(entities.User{ID: id, Name: "Local user", IsActive: true})
		}
		log.Info("using in-memory store")
		return repositories{
			jobs:       store.Jobs(),
			activities: store.Activities(),
			customers:  store.Customers(),
			users:      store.Users(),
			payments:   store.Payments(),
		}, nil
	}

	ddb := opts.DynamoDB
	if ddb == nil {
		client, err := database.ConnectDynamoDB(ctx, cfg.AWS)
		if err != nil {
			return repositories{}, err
		}
		ddb = client
	}
	log.Info("using dynamodb store",
		logger.String("region", cfg.AWS.Region),
		logger.String("endpoint", cfg.AWS.Endpoint),
	)
	return repositories{
		jobs:       repository.NewJobDynamoRepository(ddb, cfg.Store.JobsTable),
		activities: repository.NewActivityDynamoRepository(ddb, cfg.Store.ActivitiesTable),
		customers:  repository.NewCustomerDynamoRepository(ddb, cfg.Store.CustomersTable),
		users:      repository.NewUserDynamoDirectory(ddb, cfg.Store.UsersTable),
		payments:   repository.NewPaymentDynamoRepository(ddb, cfg.Store.PaymentsTable),
	}, nil
}

// Router builds the HTTP handler tree.
func (a *App) Router() *gin.Engine {
	gin.SetMode(a.cfg.Server.GinMode)
	return routes.New(routes.Handlers{
		Jobs:      handlers.NewJobHandler(a.Jobs, a.Actors),
		Customers: handlers.NewCustomerHandler(a.Customers, a.Jobs, a.Actors),
		Payments:  handlers.NewPaymentHandler(a.Payments, a.Jobs, a.Actors, a.cfg.Payments.Mock),
		Sweeps:    handlers.NewSweepHandler(a.Sweeper),
	}, routes.Options{
		Logger:   a.log,
		Metrics:  a.metrics,
		Gatherer: a.registry,
		Auth:     middleware.AuthOptions{Secret: a.cfg.Auth.JWTSecret, Issuer: a.cfg.Auth.JWTIssuer},
		Swagger:  true,
	})
}

// Run serves HTTP and, when enabled, the sweep scheduler until ctx is done.
func (a *App) Run(ctx context.Context) error {
	var sched *scheduler.SweepScheduler
	if a.cfg.Sweep.Enabled {
		var err error
		sched, err = scheduler.New(a.Sweeper, a.cfg.Sweep.Spec, a.cfg.Sweep.Timeout, a.log)
		if err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      a.Router(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("HTTP server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		a.log.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if sched != nil {
		g.Go(func() error { return sched.Run(gctx) })
	}

	return g.Wait()
}

// SweepOnce runs a single sweep under the configured timeout.
func (a *App) SweepOnce(ctx context.Context) (usecase.SweepResult, error) {
	timeout := a.cfg.Sweep.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.Sweeper.Run(ctx)
}

// Close releases the Redis connection.
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
