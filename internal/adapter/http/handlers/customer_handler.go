package handlers

import (
	"net/http"

	request "crm_pipeline/internal/adapter/http/dto/request"
	response "crm_pipeline/internal/adapter/http/dto/response"
	"crm_pipeline/internal/usecase"
	"crm_pipeline/internal/usecase/interfaces"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	usecase usecase.ICustomerUseCase
	jobs    usecase.IJobUseCase
	actors  actorSource
}

func NewCustomerHandler(uc usecase.ICustomerUseCase, jobs usecase.IJobUseCase, resolver usecase.IActorResolver) *CustomerHandler {
	return &CustomerHandler{usecase: uc, jobs: jobs, actors: actorSource{resolver: resolver}}
}

// CreateCustomer godoc
// @Summary      Create a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        customer  body      request.CreateCustomerRequest  true  "Customer"
// @Success      201       {object}  response.CustomerResponse
// @Failure      400       {object}  pkg.HTTPError
// @Router       /customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var payload request.CreateCustomerRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWith(c, errInvalidPayload)
		return
	}

	actor, err := h.actors.forNew(c)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}

	customer, err := h.usecase.Create(c.Request.Context(), payload.ToInput(), actor)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusCreated, response.FromCustomer(customer))
}

// GetCustomer godoc
// @Summary      Get a customer
// @Tags         customers
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.CustomerResponse
// @Failure      404  {object}  pkg.HTTPError
// @Router       /customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.usecase.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromCustomer(customer))
}

// ListCustomerActivities godoc
// @Summary      Audit trail of a customer and its jobs, newest first
// @Tags         customers
// @Produce      json
// @Param        id     path   string  true   "Customer ID"
// @Param        limit  query  int     false  "Max entries"
// @Success      200  {array}   response.ActivityResponse
// @Router       /customers/{id}/activities [get]
func (h *CustomerHandler) ListCustomerActivities(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		abortWith(c, errInvalidPayload)
		return
	}

	acts, err := h.jobs.ListActivities(c.Request.Context(), interfaces.ActivityFilter{CustomerID: c.Param("id"), Limit: limit})
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromActivities(acts))
}
