package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	response "crm_pipeline/internal/adapter/http/dto/response"
	"crm_pipeline/internal/infrastructure/logger"
	"crm_pipeline/internal/usecase"
	"crm_pipeline/pkg"

	"github.com/gin-gonic/gin"
)

// PaymentHandler collects the final balance of a job through the payment gateway.
type PaymentHandler struct {
	usecase  usecase.IPaymentUseCase
	actors   actorSource
	mockMode bool
}

func NewPaymentHandler(uc usecase.IPaymentUseCase, jobs usecase.IJobUseCase, resolver usecase.IActorResolver, mockMode bool) *PaymentHandler {
	return &PaymentHandler{usecase: uc, actors: actorSource{resolver: resolver, jobs: jobs}, mockMode: mockMode}
}

// CollectFinalPayment godoc
// @Summary      Charge the outstanding balance of a job
// @Description  Sends the Mercado Pago payload (bare or wrapped in mp_payload), records the payment and closes the job.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Job ID"
// @Param        payment  body      request.FinalPaymentRequest  true  "Provider payload"
// @Success      200      {object}  response.PaymentResponse
// @Failure      400      {object}  pkg.HTTPError
// @Failure      404      {object}  pkg.HTTPError
// @Failure      409      {object}  pkg.HTTPError
// @Router       /jobs/{id}/final-payment [post]
func (h *PaymentHandler) CollectFinalPayment(c *gin.Context) {
	jobID := c.Param("id")
	log := logger.FromContext(c.Request.Context()).With(logger.String("job_id", jobID))

	mpPayload, err := readMPPayload(c)
	if err != nil {
		if !h.mockMode {
			log.Info("invalid payment payload", logger.Error(err))
			abortWith(c, errInvalidPayload)
			return
		}
		log.Debug("payload invalid in mock mode; fallback to empty payload", logger.Error(err))
		mpPayload = json.RawMessage("{}")
	}

	actor, err := h.actors.forJob(c, jobID)
	if err != nil {
		abortWith(c, mapPaymentError(err))
		return
	}

	created, err := h.usecase.CollectFinalPayment(c.Request.Context(), jobID, mpPayload, actor)
	if err != nil {
		abortWith(c, mapPaymentError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromPayment(created))
}

// ListPayments godoc
// @Summary      Payments recorded for a job, oldest first
// @Tags         payments
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {array}   response.PaymentResponse
// @Router       /jobs/{id}/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	payments, err := h.usecase.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, mapPaymentError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromPayments(payments))
}

func readMPPayload(c *gin.Context) (json.RawMessage, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("request body is not valid json")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if wrapped, ok := envelope["mp_payload"]; ok {
			if len(strings.TrimSpace(string(wrapped))) == 0 || strings.TrimSpace(string(wrapped)) == "null" {
				return nil, errors.New("mp_payload cannot be empty")
			}
			return wrapped, nil
		}
	}

	return json.RawMessage(raw), nil
}

func mapPaymentError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrPaymentGatewayBadRequest):
		return pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrPaymentGatewayCustomerNotFound):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_CUSTOMER_NOT_FOUND", "Payer not found for this Mercado Pago test context", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrPaymentGatewayInvalidUsers):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_INVALID_USERS", "Invalid users involved between seller token and payer test user", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrPaymentGatewayUnauthorized):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_UNAUTHORIZED", "Payment provider unauthorized", http.StatusUnauthorized)
	case errors.Is(err, usecase.ErrNothingToCollect):
		return pkg.NewDomainErrorSimple("NOTHING_TO_COLLECT", "Job has no outstanding balance", http.StatusConflict)
	default:
		return mapJobError(err)
	}
}
