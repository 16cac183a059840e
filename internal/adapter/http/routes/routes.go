package routes

import (
	"net/http"

	_ "crm_pipeline/docs"
	"crm_pipeline/internal/adapter/http/handlers"
	"crm_pipeline/internal/adapter/http/middleware"
	"crm_pipeline/internal/infrastructure/logger"
	"crm_pipeline/internal/infrastructure/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	PathV1      = "/v1"
	PathMetrics = "/metrics"
	PathSwagger = "/swagger/*any"
)

// Handlers groups every HTTP handler mounted under /v1.
type Handlers struct {
	Jobs      *handlers.JobHandler
	Customers *handlers.CustomerHandler
	Payments  *handlers.PaymentHandler
	Sweeps    *handlers.SweepHandler
}

// Options configures the router middleware.
type Options struct {
	Logger   logger.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Auth     middleware.AuthOptions
	Swagger  bool
}

// New builds the gin engine with the standard middleware chain and all routes.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	router := gin.New()
	router.Use(middleware.Recovery(opts.Logger))
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(middleware.Metrics(opts.Metrics))

	if opts.Gatherer != nil {
		router.GET(PathMetrics, gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.Swagger {
		router.GET(PathSwagger, ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "Route not found"})
	})

	v1 := router.Group(PathV1)
	v1.Use(middleware.Auth(opts.Auth))
	addPingRoutes(v1)
	addCustomerRoutes(v1, h.Customers)
	addJobRoutes(v1, h.Jobs, h.Payments)
	addSweepRoutes(v1, h.Sweeps)
	return router
}

func addPingRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", handlers.Ping)
}
