package routes

import (
	"crm_pipeline/internal/adapter/http/handlers"

	"github.com/gin-gonic/gin"
)

const (
	PathJobs      = "/jobs"
	PathCustomers = "/customers"
	PathStages    = "/stages"
	PathSweeps    = "/sweeps"
)

func addJobRoutes(rg *gin.RouterGroup, jobHandler *handlers.JobHandler, paymentHandler *handlers.PaymentHandler) {
	if jobHandler == nil {
		return
	}
	rg.GET(PathStages, jobHandler.ListStages)

	jobs := rg.Group(PathJobs)
	{
		jobs.POST("", jobHandler.CreateJob)
		jobs.GET("", jobHandler.ListJobs)
		jobs.GET("/:id", jobHandler.GetJob)
		jobs.PATCH("/:id", jobHandler.UpdateJob)
		jobs.DELETE("/:id", jobHandler.DeleteJob)
		jobs.POST("/:id/stage", jobHandler.MoveStage)
		jobs.POST("/:id/archive", jobHandler.ArchiveJob)
		jobs.POST("/:id/unarchive", jobHandler.UnarchiveJob)
		jobs.GET("/:id/activities", jobHandler.ListJobActivities)
	}

	if paymentHandler != nil {
		jobs.POST("/:id/final-payment", paymentHandler.CollectFinalPayment)
		jobs.GET("/:id/payments", paymentHandler.ListPayments)
	}
}

func addCustomerRoutes(rg *gin.RouterGroup, customerHandler *handlers.CustomerHandler) {
	if customerHandler == nil {
		return
	}
	customers := rg.Group(PathCustomers)
	{
		customers.POST("", customerHandler.CreateCustomer)
		customers.GET("/:id", customerHandler.GetCustomer)
		customers.GET("/:id/activities", customerHandler.ListCustomerActivities)
	}
}

func addSweepRoutes(rg *gin.RouterGroup, sweepHandler *handlers.SweepHandler) {
	if sweepHandler == nil {
		return
	}
	rg.POST(PathSweeps, sweepHandler.RunSweep)
}
