package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"crm_pipeline/internal/adapter/http/handlers/mocks"
	"crm_pipeline/internal/adapter/http/middleware"
	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/usecase"
	"crm_pipeline/internal/usecase/interfaces"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

func setupCustomerRouter(t *testing.T) (*gin.Engine, *mocks.MockICustomerUseCase, *mocks.MockIJobUseCase, *mocks.MockIActorResolver) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	customers := mocks.NewMockICustomerUseCase(ctrl)
	jobs := mocks.NewMockIJobUseCase(ctrl)
	actors := mocks.NewMockIActorResolver(ctrl)
	h := NewCustomerHandler(customers, jobs, actors)

	r := gin.New()
	r.Use(middleware.Auth(middleware.AuthOptions{}))
	r.POST("/v1/customers", h.CreateCustomer)
	r.GET("/v1/customers/:id", h.GetCustomer)
	r.GET("/v1/customers/:id/activities", h.ListCustomerActivities)
	return r, customers, jobs, actors
}

func TestCustomerHandler_CreateCustomer(t *testing.T) {
	t.Run("missing name", func(t *testing.T) {
		r, _, _, _ := setupCustomerRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/v1/customers", bytes.NewBufferString(`{"email":"a@b.com"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		r, customers, _, actors := setupCustomerRouter(t)
		actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		customers.EXPECT().Create(gomock.Any(), usecase.CreateCustomerInput{Name: "Ana", Email: "ana@test.com"}, "u-1").
			Return(entities.Customer{ID: "c-1", Name: "Ana", Email: "ana@test.com", CreatedBy: "u-1"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/customers", bytes.NewBufferString(`{"name":" Ana ","email":"ana@test.com"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderUserID, "u-1")
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["id"] != "c-1" {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("no active user", func(t *testing.T) {
		r, _, _, actors := setupCustomerRouter(t)
		actors.EXPECT().Resolve(gomock.Any(), "", "").Return("", usecase.ErrMissingActor)

		req := httptest.NewRequest(http.MethodPost, "/v1/customers", bytes.NewBufferString(`{"name":"Ana"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})
}

func TestCustomerHandler_GetCustomer(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		r, customers, _, _ := setupCustomerRouter(t)
		customers.EXPECT().GetByID(gomock.Any(), "c-404").Return(entities.Customer{}, usecase.ErrCustomerNotFound)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/customers/c-404", nil))

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		r, customers, _, _ := setupCustomerRouter(t)
		customers.EXPECT().GetByID(gomock.Any(), "c-1").Return(entities.Customer{ID: "c-1", Name: "Ana"}, nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/customers/c-1", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

func TestCustomerHandler_ListCustomerActivities(t *testing.T) {
	r, _, jobs, _ := setupCustomerRouter(t)
	jobs.EXPECT().ListActivities(gomock.Any(), interfaces.ActivityFilter{CustomerID: "c-1"}).
		Return([]entities.Activity{
			{ID: "a-2", Type: entities.ActivityJobCreated, CustomerID: "c-1", JobID: "job-1"},
			{ID: "a-1", Type: entities.ActivityCustomerCreated, CustomerID: "c-1"},
		}, nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/customers/c-1/activities", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body []map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if len(body) != 2 || body[1]["type"] != "customer_created" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
