package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crm_pipeline/internal/adapter/http/handlers/mocks"
	"crm_pipeline/internal/adapter/http/middleware"
	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

type failingReadCloser struct{}

func (failingReadCloser) Read(_ []byte) (int, error) { return 0, errors.New("read error") }
func (failingReadCloser) Close() error               { return nil }

type paymentFixture struct {
	payments *mocks.MockIPaymentUseCase
	jobs     *mocks.MockIJobUseCase
	actors   *mocks.MockIActorResolver
	router   *gin.Engine
}

func newPaymentFixture(t *testing.T, mockMode bool) paymentFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	f := paymentFixture{
		payments: mocks.NewMockIPaymentUseCase(ctrl),
		jobs:     mocks.NewMockIJobUseCase(ctrl),
		actors:   mocks.NewMockIActorResolver(ctrl),
	}
	h := NewPaymentHandler(f.payments, f.jobs, f.actors, mockMode)

	f.router = gin.New()
	f.router.Use(middleware.Auth(middleware.AuthOptions{}))
	f.router.POST("/v1/jobs/:id/final-payment", h.CollectFinalPayment)
	f.router.GET("/v1/jobs/:id/payments", h.ListPayments)
	return f
}

func postPayment(r *gin.Engine, body string, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/job-1/final-payment", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPaymentHandler_CollectFinalPayment(t *testing.T) {
	t.Run("invalid payload", func(t *testing.T) {
		f := newPaymentFixture(t, false)

		w := postPayment(f.router, "{", "u-1")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("invalid payload in mock mode falls back to empty", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.payments.EXPECT().CollectFinalPayment(gomock.Any(), "job-1", json.RawMessage("{}"), "u-1").
			Return(entities.Payment{ID: "pay-1", JobID: "job-1", Status: entities.PaymentStatusAprovado}, nil)

		w := postPayment(f.router, "{", "u-1")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("usecase mapped error", func(t *testing.T) {
		f := newPaymentFixture(t, false)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.payments.EXPECT().CollectFinalPayment(gomock.Any(), "job-1", gomock.Any(), "u-1").Return(entities.Payment{}, usecase.ErrNothingToCollect)

		w := postPayment(f.router, `{"payment_method_id":"pix","payer":{"email":"x@test.com"}}`, "u-1")

		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("anonymous request is attributed to the job creator", func(t *testing.T) {
		f := newPaymentFixture(t, false)
		f.jobs.EXPECT().GetJob(gomock.Any(), "job-1").Return(entities.Job{ID: "job-1", CreatedBy: "owner-1"}, nil)
		f.actors.EXPECT().Resolve(gomock.Any(), "", "owner-1").Return("owner-1", nil)
		f.payments.EXPECT().CollectFinalPayment(gomock.Any(), "job-1", gomock.Any(), "owner-1").
			Return(entities.Payment{ID: "pay-1", JobID: "job-1"}, nil)

		w := postPayment(f.router, `{}`, "")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("unknown job while resolving the actor", func(t *testing.T) {
		f := newPaymentFixture(t, false)
		f.jobs.EXPECT().GetJob(gomock.Any(), "job-1").Return(entities.Job{}, usecase.ErrJobNotFound)

		w := postPayment(f.router, `{}`, "")

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		f := newPaymentFixture(t, false)
		now := time.Now().UTC()
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.payments.EXPECT().CollectFinalPayment(gomock.Any(), "job-1", json.RawMessage(`{"payment_method_id":"pix","payer":{"email":"x@test.com"}}`), "u-1").
			Return(entities.Payment{ID: "pay-1", JobID: "job-1", Date: now, Status: entities.PaymentStatusAprovado, Amount: 4000}, nil)

		w := postPayment(f.router, `{"mp_payload":{"payment_method_id":"pix","payer":{"email":"x@test.com"}}}`, "u-1")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["payment_id"] != "pay-1" || body["amount"] != 4000.0 {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})
}

func TestPaymentHandler_ListPayments(t *testing.T) {
	t.Run("list error", func(t *testing.T) {
		f := newPaymentFixture(t, false)
		f.payments.EXPECT().ListPayments(gomock.Any(), "job-1").Return(nil, errors.New("dynamo down"))

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1/payments", nil))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		f := newPaymentFixture(t, false)
		f.payments.EXPECT().ListPayments(gomock.Any(), "job-1").Return(nil, nil)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1/payments", nil))

		if w.Code != http.StatusOK || w.Body.String() != "[]" {
			t.Fatalf("expected 200 [], got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("success", func(t *testing.T) {
		f := newPaymentFixture(t, false)
		f.payments.EXPECT().ListPayments(gomock.Any(), "job-1").Return([]entities.Payment{
			{ID: "first", JobID: "job-1", Date: time.Now().Add(-time.Hour)},
			{ID: "second", JobID: "job-1", Date: time.Now()},
		}, nil)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1/payments", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body []map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if len(body) != 2 || body[0]["id"] != "first" {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})
}

func TestReadMPPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	makeCtx := func(raw string) *gin.Context {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(raw))
		c.Request.Header.Set("Content-Type", "application/json")
		return c
	}

	ctxReadErr := makeCtx("{}")
	ctxReadErr.Request.Body = failingReadCloser{}
	if _, err := readMPPayload(ctxReadErr); err == nil {
		t.Fatalf("expected read body error")
	}

	if _, err := readMPPayload(makeCtx("{invalid")); err == nil {
		t.Fatalf("expected invalid json error")
	}

	payload, err := readMPPayload(makeCtx("   "))
	if err != nil || string(payload) != "{}" {
		t.Fatalf("expected {}, got payload=%s err=%v", string(payload), err)
	}

	if _, err := readMPPayload(makeCtx(`{"mp_payload":null}`)); err == nil {
		t.Fatalf("expected mp_payload empty error")
	}

	payload, err = readMPPayload(makeCtx(`{"mp_payload":{"a":1}}`))
	if err != nil || string(payload) != `{"a":1}` {
		t.Fatalf("expected wrapped payload, got %s err=%v", payload, err)
	}

	payload, err = readMPPayload(makeCtx(`{"payment_method_id":"pix"}`))
	if err != nil || string(payload) != `{"payment_method_id":"pix"}` {
		t.Fatalf("expected raw body payload, got %s err=%v", payload, err)
	}
}

func TestMapPaymentError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{usecase.ErrInvalidJobID, http.StatusBadRequest},
		{usecase.ErrInvalidPaymentPayload, http.StatusBadRequest},
		{usecase.ErrPaymentGatewayBadRequest, http.StatusBadRequest},
		{usecase.ErrPaymentGatewayCustomerNotFound, http.StatusBadRequest},
		{usecase.ErrPaymentGatewayInvalidUsers, http.StatusBadRequest},
		{usecase.ErrPaymentGatewayUnauthorized, http.StatusUnauthorized},
		{usecase.ErrJobNotFound, http.StatusNotFound},
		{usecase.ErrNothingToCollect, http.StatusConflict},
		{usecase.ErrPaymentGatewayNotConfigured, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		got := mapPaymentError(tc.err)
		if got.HTTPStatus != tc.code {
			t.Fatalf("for err %v expected %d got %d", tc.err, tc.code, got.HTTPStatus)
		}
	}
}
