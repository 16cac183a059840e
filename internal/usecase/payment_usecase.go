package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/infrastructure/logger"
	"crm_pipeline/internal/infrastructure/metrics"
	"crm_pipeline/internal/usecase/interfaces"
)

var (
	ErrInvalidPaymentPayload          = &ValidationError{Field: "payload", Message: "is not a valid payment request"}
	ErrPaymentGatewayNotConfigured    = errors.New("payment gateway not configured")
	ErrPaymentGatewayBadRequest       = errors.New("payment gateway bad request")
	ErrPaymentGatewayUnauthorized     = errors.New("payment gateway unauthorized")
	ErrPaymentGatewayInvalidUsers     = errors.New("payment gateway invalid users involved")
	ErrPaymentGatewayCustomerNotFound = errors.New("payment gateway customer not found")
)

// PaymentConfig controls the gateway call.
//
// In mock mode no provider is contacted and an approved response is synthesised.
// The sandbox payer fields only apply to TEST- access tokens.
type PaymentConfig struct {
	Mock            bool
	AccessToken     string
	TestPayerEmail  string
	TestPayerUserID string
}

// IPaymentUseCase collects the final balance of a job.
type IPaymentUseCase interface {
	CollectFinalPayment(ctx context.Context, jobID string, providerPayload json.RawMessage, actor string) (entities.Payment, error)
	ListPayments(ctx context.Context, jobID string) ([]entities.Payment, error)
}

type PaymentUseCase struct {
	repo    interfaces.IPaymentRepository
	jobs    IJobUseCase
	gateway interfaces.IPaymentGateway
	audit   auditTrail
	log     logger.Logger
	cfg     PaymentConfig
	now     func() time.Time
}

var _ IPaymentUseCase = (*PaymentUseCase)(nil)

func NewPaymentUseCase(
	repo interfaces.IPaymentRepository,
	jobs IJobUseCase,
	gateway interfaces.IPaymentGateway,
	activities interfaces.IActivityRepository,
	cfg PaymentConfig,
	log logger.Logger,
	m *metrics.Metrics,
) *PaymentUseCase {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.String("component", "payment"))
	return &PaymentUseCase{
		repo:    repo,
		jobs:    jobs,
		gateway: gateway,
		audit:   newAuditTrail(activities, log, m),
		log:     log,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CollectFinalPayment charges valueContracted minus the paid deposit and stores
// the payment with the provider's outcome. Only an approved payment is recorded
// on the job and closes it.
func (u *PaymentUseCase) CollectFinalPayment(ctx context.Context, jobID string, providerPayload json.RawMessage, actor string) (entities.Payment, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return entities.Payment{}, err
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return entities.Payment{}, ErrInvalidJobID
	}
	log := u.log.With(logger.String("job_id", jobID))
	log.Debug("collect final payment start", logger.Int("payload_len", len(providerPayload)), logger.Bool("mock", u.cfg.Mock))

	if len(providerPayload) == 0 || !json.Valid(providerPayload) {
		if !u.cfg.Mock {
			return entities.Payment{}, ErrInvalidPaymentPayload
		}
		providerPayload = json.RawMessage("{}")
	}
	if !u.cfg.Mock && u.gateway == nil {
		return entities.Payment{}, ErrPaymentGatewayNotConfigured
	}

	job, err := u.jobs.GetJob(ctx, jobID)
	if err != nil {
		return entities.Payment{}, err
	}
	amount := job.Balance()
	if amount <= 0 {
		return entities.Payment{}, ErrNothingToCollect
	}

	var reqMap map[string]any
	if err := json.Unmarshal(providerPayload, &reqMap); err != nil || reqMap == nil {
		return entities.Payment{}, ErrInvalidPaymentPayload
	}
	if !u.cfg.Mock {
		if !hasNonEmptyString(reqMap, "payment_method_id") {
			log.Info("payment payload missing payment_method_id")
			return entities.Payment{}, ErrInvalidPaymentPayload
		}
		u.normalizeSandboxPayer(reqMap)
		u.ensurePayerDefaults(reqMap)
		if !hasPayer(reqMap) {
			log.Info("payment payload missing payer")
			return entities.Payment{}, ErrInvalidPaymentPayload
		}
	}
	if _, ok := reqMap["external_reference"]; !ok {
		reqMap["external_reference"] = jobID
	}
	if _, ok := reqMap["description"]; !ok {
		reqMap["description"] = fmt.Sprintf("Final payment for job %s", jobID)
	}
	// The job is the source of truth for the amount.
	reqMap["transaction_amount"] = amount
	request, err := json.Marshal(reqMap)
	if err != nil {
		return entities.Payment{}, err
	}

	var (
		providerPaymentID string
		providerStatus    string
		providerResp      json.RawMessage
	)
	if u.cfg.Mock {
		providerPaymentID, providerStatus, providerResp, err = u.mockResponse(reqMap)
		if err != nil {
			return entities.Payment{}, err
		}
	} else {
		providerPaymentID, providerStatus, providerResp, err = u.gateway.CreatePayment(ctx, request)
		if err != nil {
			log.Warn("payment gateway failed", logger.Error(err))
			return entities.Payment{}, mapGatewayError(err)
		}
	}
	log.Info("payment gateway success",
		logger.String("provider_payment_id", providerPaymentID),
		logger.String("provider_status", providerStatus),
	)

	var parsed map[string]interface{}
	if err := json.Unmarshal(providerResp, &parsed); err != nil {
		log.Warn("provider response unmarshal failed", logger.Error(err))
	}

	now := u.now()
	method, _ := reqMap["payment_method_id"].(string)
	status := paymentStatusFromProvider(providerStatus)
	created, err := u.repo.Create(ctx, entities.Payment{
		ID:                 providerPaymentID,
		JobID:              jobID,
		Date:               now,
		Status:             status,
		Amount:             amount,
		Method:             method,
		ProviderPayloadRaw: providerResp,
		ProviderPayload:    parsed,
	})
	if err != nil {
		return entities.Payment{}, err
	}

	if status != entities.PaymentStatusAprovado {
		log.Info("final payment not approved, job left open",
			logger.String("provider_payment_id", created.ID),
			logger.String("status", string(status)),
		)
		u.audit.record(ctx, entities.Activity{
			Type:       entities.ActivityNote,
			JobID:      jobID,
			CustomerID: job.CustomerID,
			Note:       fmt.Sprintf("Final payment of %s %s (%s)", strconv.FormatFloat(amount, 'f', 2, 64), status, created.ID),
			CreatedBy:  actor,
		}, now)
		return created, nil
	}

	// The payment record is committed; job bookkeeping below is best effort.
	paidAt := now
	if _, err := u.jobs.ApplyUpdate(ctx, jobID, JobPatch{FinalPayment: &entities.FinalPayment{
		AmountDue:         amount,
		AmountPaid:        amount,
		PaidAt:            &paidAt,
		Method:            method,
		ProviderPaymentID: created.ID,
	}}, actor); err != nil {
		log.Warn("final payment recorded but job update failed", logger.Error(err))
	}
	if job.Stage != entities.StageFinalPaymentClosed {
		if _, err := u.jobs.MoveStage(ctx, jobID, entities.StageFinalPaymentClosed, "Final payment received", actor); err != nil && !errors.Is(err, ErrAlreadyInStage) {
			log.Warn("final payment recorded but stage move failed", logger.Error(err))
		}
	}

	u.audit.record(ctx, entities.Activity{
		Type:       entities.ActivityPaymentReceived,
		JobID:      jobID,
		CustomerID: job.CustomerID,
		Note:       fmt.Sprintf("Final payment of %s received (%s)", strconv.FormatFloat(amount, 'f', 2, 64), created.ID),
		CreatedBy:  actor,
	}, now)
	return created, nil
}

func (u *PaymentUseCase) ListPayments(ctx context.Context, jobID string) ([]entities.Payment, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, ErrInvalidJobID
	}
	return u.repo.ListByJobID(ctx, jobID)
}

// paymentStatusFromProvider maps a Mercado Pago payment status. Anything not
// final yet is pending.
func paymentStatusFromProvider(status string) entities.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved":
		return entities.PaymentStatusAprovado
	case "rejected", "cancelled", "refunded", "charged_back":
		return entities.PaymentStatusNegado
	default:
		return entities.PaymentStatusPendente
	}
}

func (u *PaymentUseCase) mockResponse(req map[string]any) (string, string, json.RawMessage, error) {
	now := u.now()
	id := strconv.FormatInt(now.UnixNano(), 10)
	resp := make(map[string]any, len(req)+5)
	for k, v := range req {
		resp[k] = v
	}
	resp["id"] = id
	resp["status"] = "approved"
	resp["status_detail"] = "accredited"
	resp["date_created"] = now.Format(time.RFC3339Nano)
	resp["date_approved"] = now.Format(time.RFC3339Nano)
	b, err := json.Marshal(resp)
	if err != nil {
		return "", "", nil, err
	}
	return id, "approved", b, nil
}

func (u *PaymentUseCase) sandbox() bool {
	return strings.HasPrefix(strings.TrimSpace(u.cfg.AccessToken), "TEST-")
}

// ensurePayerDefaults fills payer.type and, in sandbox, a test payer email when
// neither payer.id nor payer.email was sent.
func (u *PaymentUseCase) ensurePayerDefaults(m map[string]any) {
	v, ok := m["payer"]
	if !ok || v == nil {
		v = map[string]any{}
		m["payer"] = v
	}
	payer, ok := v.(map[string]any)
	if !ok {
		return
	}
	if _, ok := payer["type"]; !ok {
		payer["type"] = "customer"
	}
	if hasPayerID(payer) || hasNonEmptyString(payer, "email") {
		return
	}
	switch {
	case strings.TrimSpace(u.cfg.TestPayerEmail) != "":
		payer["email"] = strings.TrimSpace(u.cfg.TestPayerEmail)
	case u.sandbox():
		payer["email"] = "test_user_br@testuser.com"
	}
}

// normalizeSandboxPayer swaps the configured sandbox payer user id for its email.
func (u *PaymentUseCase) normalizeSandboxPayer(m map[string]any) {
	payer, ok := m["payer"].(map[string]any)
	if !ok || !u.sandbox() {
		return
	}
	if !hasPayerID(payer) || hasNonEmptyString(payer, "email") {
		return
	}
	userID := strings.TrimSpace(u.cfg.TestPayerUserID)
	email := strings.TrimSpace(u.cfg.TestPayerEmail)
	if userID == "" || email == "" {
		return
	}
	if strings.TrimSpace(fmt.Sprintf("%v", payer["id"])) != userID {
		return
	}
	payer["email"] = email
	delete(payer, "id")
}

func hasNonEmptyString(m map[string]any, key string) bool {
	s, ok := m[key].(string)
	return ok && strings.TrimSpace(s) != ""
}

func hasPayer(m map[string]any) bool {
	payer, ok := m["payer"].(map[string]any)
	if !ok {
		return false
	}
	return hasNonEmptyString(payer, "email") || hasPayerID(payer)
}

func hasPayerID(payer map[string]any) bool {
	v, ok := payer["id"]
	if !ok || v == nil {
		return false
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	return s != "" && s != "<nil>"
}

func mapGatewayError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "customer not found"), strings.Contains(msg, "\"code\":2002"):
		return ErrPaymentGatewayCustomerNotFound
	case strings.Contains(msg, "invalid users involved"), strings.Contains(msg, "\"code\":2034"):
		return ErrPaymentGatewayInvalidUsers
	case strings.Contains(msg, "\"error\":\"unauthorized\""), strings.Contains(msg, "\"status\":401"):
		return ErrPaymentGatewayUnauthorized
	case strings.Contains(msg, "\"error\":\"bad_request\""), strings.Contains(msg, "\"status\":400"):
		return ErrPaymentGatewayBadRequest
	default:
		return err
	}
}
