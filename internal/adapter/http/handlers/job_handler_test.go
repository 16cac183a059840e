package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

type jobFixture struct {
	jobs   *mocks.MockIJobUseCase
	actors *mocks.MockIActorResolver
	router *gin.Engine
}

func newJobFixture(t *testing.T) jobFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	f := jobFixture{
		jobs:   mocks.NewMockIJobUseCase(ctrl),
		actors: mocks.NewMockIActorResolver(ctrl),
	}
	h := NewJobHandler(f.jobs, f.actors)

	f.router = gin.New()
	f.router.Use(middleware.Auth(middleware.AuthOptions{}))
	f.router.GET("/v1/stages", h.ListStages)
	f.router.POST("/v1/jobs", h.CreateJob)
	f.router.GET("/v1/jobs", h.ListJobs)
	f.router.GET("/v1/jobs/:id", h.GetJob)
	f.router.PATCH("/v1/jobs/:id", h.UpdateJob)
	f.router.DELETE("/v1/jobs/:id", h.DeleteJob)
	f.router.POST("/v1/jobs/:id/stage", h.MoveStage)
	f.router.POST("/v1/jobs/:id/archive", h.ArchiveJob)
	f.router.POST("/v1/jobs/:id/unarchive", h.UnarchiveJob)
	f.router.GET("/v1/jobs/:id/activities", h.ListJobActivities)
	return f
}

func (f jobFixture) do(method, path, body, user string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestJobHandler_CreateJob(t *testing.T) {
	t.Run("invalid payload", func(t *testing.T) {
		f := newJobFixture(t)

		w := f.do(http.MethodPost, "/v1/jobs", `{"stage":"JOB_PREP"}`, "u-1")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("missing actor", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "", "").Return("", usecase.ErrMissingActor)

		w := f.do(http.MethodPost, "/v1/jobs", `{"customerId":"c-1"}`, "")

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().CreateJob(gomock.Any(), gomock.Any(), "u-1").Return(entities.Job{}, usecase.ErrCustomerNotFound)

		w := f.do(http.MethodPost, "/v1/jobs", `{"customerId":"c-404"}`, "u-1")

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().CreateJob(gomock.Any(), usecase.CreateJobInput{
			CustomerID:     "c-1",
			Stage:          entities.StageEstimateSent,
			ValueEstimated: 1200,
			Notes:          []string{"first visit"},
		}, "u-1").Return(entities.Job{ID: "job-1", CustomerID: "c-1", Stage: entities.StageEstimateSent, CreatedBy: "u-1"}, nil)

		w := f.do(http.MethodPost, "/v1/jobs",
			`{"customerId":" c-1 ","stage":"ESTIMATE_SENT","valueEstimated":1200,"notes":["first visit"]}`, "u-1")

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["id"] != "job-1" || body["stageLabel"] != "Estimate Sent" {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})
}

func TestJobHandler_GetJob(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		f := newJobFixture(t)
		f.jobs.EXPECT().GetJob(gomock.Any(), "missing").Return(entities.Job{}, usecase.ErrJobNotFound)

		w := f.do(http.MethodGet, "/v1/jobs/missing", "", "")

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("internal error", func(t *testing.T) {
		f := newJobFixture(t)
		f.jobs.EXPECT().GetJob(gomock.Any(), "job-1").Return(entities.Job{}, errors.New("dynamo down"))

		w := f.do(http.MethodGet, "/v1/jobs/job-1", "", "")

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})

	t.Run("success renders empty notes", func(t *testing.T) {
		f := newJobFixture(t)
		f.jobs.EXPECT().GetJob(gomock.Any(), "job-1").Return(entities.Job{ID: "job-1", Stage: entities.StageJobPrep}, nil)

		w := f.do(http.MethodGet, "/v1/jobs/job-1", "", "")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte(`"notes":[]`)) {
			t.Fatalf("expected empty notes array, got %s", w.Body.String())
		}
	})
}

func TestJobHandler_ListJobs(t *testing.T) {
	t.Run("bad flag", func(t *testing.T) {
		f := newJobFixture(t)

		w := f.do(http.MethodGet, "/v1/jobs?includeArchived=maybe", "", "")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("filters are forwarded", func(t *testing.T) {
		f := newJobFixture(t)
		f.jobs.EXPECT().ListJobs(gomock.Any(), interfaces.JobFilter{
			CustomerID:      "c-1",
			Stage:           entities.StageScheduled,
			IncludeArchived: true,
		}).Return([]entities.Job{{ID: "a"}, {ID: "b"}}, nil)

		w := f.do(http.MethodGet, "/v1/jobs?customerId=c-1&stage=SCHEDULED&includeArchived=true", "", "")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body []map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if len(body) != 2 {
			t.Fatalf("expected 2 jobs, got %s", w.Body.String())
		}
	})
}

func TestJobHandler_UpdateJob(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		f := newJobFixture(t)

		w := f.do(http.MethodPatch, "/v1/jobs/job-1", `{"valueEstimated":"x"}`, "u-1")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("customer change rejected", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().ApplyUpdate(gomock.Any(), "job-1", gomock.Any(), "u-1").Return(entities.Job{}, usecase.ErrCustomerImmutable)

		w := f.do(http.MethodPatch, "/v1/jobs/job-1", `{"customerId":"other"}`, "u-1")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("anonymous update falls back to the creator", func(t *testing.T) {
		f := newJobFixture(t)
		f.jobs.EXPECT().GetJob(gomock.Any(), "job-1").Return(entities.Job{ID: "job-1", CreatedBy: "owner"}, nil)
		f.actors.EXPECT().Resolve(gomock.Any(), "", "owner").Return("owner", nil)
		f.jobs.EXPECT().ApplyUpdate(gomock.Any(), "job-1", gomock.Any(), "owner").
			DoAndReturn(func(_ context.Context, _ string, patch usecase.JobPatch, _ string) (entities.Job, error) {
				if patch.ValueEstimated == nil || *patch.ValueEstimated != 500 {
					t.Fatalf("unexpected patch: %+v", patch)
				}
				return entities.Job{ID: "job-1", ValueEstimated: 500}, nil
			})

		w := f.do(http.MethodPatch, "/v1/jobs/job-1", `{"valueEstimated":500}`, "")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

func TestJobHandler_MoveStage(t *testing.T) {
	t.Run("missing stage", func(t *testing.T) {
		f := newJobFixture(t)

		w := f.do(http.MethodPost, "/v1/jobs/job-1/stage", `{"note":"x"}`, "u-1")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("same stage conflicts", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().MoveStage(gomock.Any(), "job-1", entities.StageJobPrep, "", "u-1").Return(entities.Job{}, usecase.ErrAlreadyInStage)

		w := f.do(http.MethodPost, "/v1/jobs/job-1/stage", `{"stage":"JOB_PREP"}`, "u-1")

		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("unknown stage", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().MoveStage(gomock.Any(), "job-1", entities.Stage("NOPE"), "", "u-1").Return(entities.Job{}, usecase.ErrInvalidStage)

		w := f.do(http.MethodPost, "/v1/jobs/job-1/stage", `{"stage":"NOPE"}`, "u-1")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().MoveStage(gomock.Any(), "job-1", entities.StageInstalled, "done", "u-1").
			Return(entities.Job{ID: "job-1", Stage: entities.StageInstalled}, nil)

		w := f.do(http.MethodPost, "/v1/jobs/job-1/stage", `{"stage":" INSTALLED ","note":"done"}`, "u-1")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

func TestJobHandler_Archive(t *testing.T) {
	t.Run("archive conflict", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().ArchiveJob(gomock.Any(), "job-1", "u-1").Return(entities.Job{}, usecase.ErrAlreadyArchived)

		w := f.do(http.MethodPost, "/v1/jobs/job-1/archive", "", "u-1")

		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("archive", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().ArchiveJob(gomock.Any(), "job-1", "u-1").Return(entities.Job{ID: "job-1", IsArchived: true}, nil)

		w := f.do(http.MethodPost, "/v1/jobs/job-1/archive", "", "u-1")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("unarchive", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().UnarchiveJob(gomock.Any(), "job-1", "u-1").Return(entities.Job{ID: "job-1"}, nil)

		w := f.do(http.MethodPost, "/v1/jobs/job-1/unarchive", "", "u-1")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-off", "").Return("", usecase.ErrInactiveUser)

		w := f.do(http.MethodPost, "/v1/jobs/job-1/unarchive", "", "u-off")

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})
}

func TestJobHandler_DeleteJob(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().DeleteJob(gomock.Any(), "job-1", "u-1").Return(usecase.ErrJobNotFound)

		w := f.do(http.MethodDelete, "/v1/jobs/job-1", "", "u-1")

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		f := newJobFixture(t)
		f.actors.EXPECT().Resolve(gomock.Any(), "u-1", "").Return("u-1", nil)
		f.jobs.EXPECT().DeleteJob(gomock.Any(), "job-1", "u-1").Return(nil)

		w := f.do(http.MethodDelete, "/v1/jobs/job-1", "", "u-1")

		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
	})
}

func TestJobHandler_ListJobActivities(t *testing.T) {
	t.Run("bad limit", func(t *testing.T) {
		f := newJobFixture(t)

		w := f.do(http.MethodGet, "/v1/jobs/job-1/activities?limit=-1", "", "")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		f := newJobFixture(t)
		f.jobs.EXPECT().ListActivities(gomock.Any(), interfaces.ActivityFilter{JobID: "job-1", Limit: 5}).
			Return([]entities.Activity{{
				ID:        "a-1",
				JobID:     "job-1",
				Type:      entities.ActivityStageChange,
				FromStage: entities.StageJobPrep,
				ToStage:   entities.StageTakeoffComplete,
			}}, nil)

		w := f.do(http.MethodGet, "/v1/jobs/job-1/activities?limit=5", "", "")

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body []map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if len(body) != 1 || body[0]["toStageLabel"] != "Takeoff Complete" {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})
}

func TestJobHandler_ListStages(t *testing.T) {
	f := newJobFixture(t)

	w := f.do(http.MethodGet, "/v1/stages", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body []stageResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if len(body) != 14 || body[0].Value != string(entities.StageAppointmentScheduled) || body[13].Label != entities.StageFinalPaymentClosed.Label() {
		t.Fatalf("unexpected stages: %+v", body)
	}
}

func TestMapJobError(t *testing.T) {
	cases := []struct {
		err  error
		code int
		want string
	}{
		{usecase.ErrInvalidJobID, http.StatusBadRequest, "VALIDATION_ERROR"},
		{usecase.ErrJobNotFound, http.StatusNotFound, "JOB_NOT_FOUND"},
		{usecase.ErrCustomerNotFound, http.StatusNotFound, "CUSTOMER_NOT_FOUND"},
		{usecase.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
		{usecase.ErrSweepInProgress, http.StatusConflict, "SWEEP_IN_PROGRESS"},
		{usecase.ErrNotArchived, http.StatusConflict, "INVALID_TRANSITION"},
		{usecase.ErrMissingActor, http.StatusUnauthorized, "MISSING_ACTOR"},
		{usecase.ErrInactiveUser, http.StatusUnauthorized, "INACTIVE_USER"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		got := mapJobError(tc.err)
		if got.HTTPStatus != tc.code || got.Code != tc.want {
			t.Fatalf("for err %v expected %d/%s got %d/%s", tc.err, tc.code, tc.want, got.HTTPStatus, got.Code)
		}
	}
}
