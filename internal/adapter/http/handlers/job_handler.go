package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	request "crm_pipeline/internal/adapter/http/dto/request"
	response "crm_pipeline/internal/adapter/http/dto/response"
	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/usecase"
	"crm_pipeline/internal/usecase/interfaces"

	"github.com/gin-gonic/gin"
)

// JobHandler exposes the job lifecycle: creation, partial updates, stage
// moves, archiving and the audit trail.
type JobHandler struct {
	usecase usecase.IJobUseCase
	actors  actorSource
}

func NewJobHandler(uc usecase.IJobUseCase, resolver usecase.IActorResolver) *JobHandler {
	return &JobHandler{usecase: uc, actors: actorSource{resolver: resolver, jobs: uc}}
}

// CreateJob godoc
// @Summary      Create a job
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        job  body      request.CreateJobRequest  true  "Job"
// @Success      201  {object}  response.JobResponse
// @Failure      400  {object}  pkg.HTTPError
// @Failure      404  {object}  pkg.HTTPError
// @Router       /jobs [post]
func (h *JobHandler) CreateJob(c *gin.Context) {
	var payload request.CreateJobRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWith(c, errInvalidPayload)
		return
	}

	actor, err := h.actors.forNew(c)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}

	job, err := h.usecase.CreateJob(c.Request.Context(), payload.ToInput(), actor)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusCreated, response.FromJob(job))
}

// GetJob godoc
// @Summary      Get a job
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  response.JobResponse
// @Failure      404  {object}  pkg.HTTPError
// @Router       /jobs/{id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.usecase.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromJob(job))
}

// ListJobs godoc
// @Summary      List jobs
// @Description  Active pipeline by default; archived and dead estimates on request.
// @Tags         jobs
// @Produce      json
// @Param        customerId       query  string  false  "Customer ID"
// @Param        stage            query  string  false  "Stage"
// @Param        includeArchived  query  bool    false  "Include archived jobs"
// @Param        includeDead      query  bool    false  "Include dead estimates"
// @Success      200  {array}   response.JobResponse
// @Failure      400  {object}  pkg.HTTPError
// @Router       /jobs [get]
func (h *JobHandler) ListJobs(c *gin.Context) {
	includeArchived, err := queryBool(c, "includeArchived")
	if err != nil {
		abortWith(c, errInvalidPayload)
		return
	}
	includeDead, err := queryBool(c, "includeDead")
	if err != nil {
		abortWith(c, errInvalidPayload)
		return
	}

	jobs, err := h.usecase.ListJobs(c.Request.Context(), interfaces.JobFilter{
		CustomerID:      strings.TrimSpace(c.Query("customerId")),
		Stage:           entities.Stage(strings.TrimSpace(c.Query("stage"))),
		IncludeArchived: includeArchived,
		IncludeDead:     includeDead,
	})
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromJobs(jobs))
}

// UpdateJob godoc
// @Summary      Partially update a job
// @Description  Every effective field change is recorded as a job_updated activity.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id   path      string                    true  "Job ID"
// @Param        job  body      request.UpdateJobRequest  true  "Fields to change"
// @Success      200  {object}  response.JobResponse
// @Failure      400  {object}  pkg.HTTPError
// @Failure      404  {object}  pkg.HTTPError
// @Router       /jobs/{id} [patch]
func (h *JobHandler) UpdateJob(c *gin.Context) {
	var payload request.UpdateJobRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWith(c, errInvalidPayload)
		return
	}

	jobID := c.Param("id")
	actor, err := h.actors.forJob(c, jobID)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}

	job, err := h.usecase.ApplyUpdate(c.Request.Context(), jobID, payload.ToPatch(), actor)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromJob(job))
}

// MoveStage godoc
// @Summary      Move a job to another stage
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "Job ID"
// @Param        move  body      request.MoveStageRequest  true  "Target stage"
// @Success      200   {object}  response.JobResponse
// @Failure      400   {object}  pkg.HTTPError
// @Failure      404   {object}  pkg.HTTPError
// @Failure      409   {object}  pkg.HTTPError
// @Router       /jobs/{id}/stage [post]
func (h *JobHandler) MoveStage(c *gin.Context) {
	var payload request.MoveStageRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWith(c, errInvalidPayload)
		return
	}

	jobID := c.Param("id")
	actor, err := h.actors.forJob(c, jobID)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}

	job, err := h.usecase.MoveStage(c.Request.Context(), jobID, payload.ResolveStage(), payload.Note, actor)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromJob(job))
}

// ArchiveJob godoc
// @Summary      Archive a job
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  response.JobResponse
// @Failure      404  {object}  pkg.HTTPError
// @Failure      409  {object}  pkg.HTTPError
// @Router       /jobs/{id}/archive [post]
func (h *JobHandler) ArchiveJob(c *gin.Context) {
	h.toggleArchive(c, h.usecase.ArchiveJob)
}

// UnarchiveJob godoc
// @Summary      Restore an archived job
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  response.JobResponse
// @Failure      404  {object}  pkg.HTTPError
// @Failure      409  {object}  pkg.HTTPError
// @Router       /jobs/{id}/unarchive [post]
func (h *JobHandler) UnarchiveJob(c *gin.Context) {
	h.toggleArchive(c, h.usecase.UnarchiveJob)
}

func (h *JobHandler) toggleArchive(
	c *gin.Context,
	op func(ctx context.Context, jobID string, actor string) (entities.Job, error),
) {
	jobID := c.Param("id")
	actor, err := h.actors.forJob(c, jobID)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}

	job, err := op(c.Request.Context(), jobID, actor)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromJob(job))
}

// DeleteJob godoc
// @Summary      Delete a job
// @Tags         jobs
// @Param        id   path  string  true  "Job ID"
// @Success      204
// @Failure      404  {object}  pkg.HTTPError
// @Router       /jobs/{id} [delete]
func (h *JobHandler) DeleteJob(c *gin.Context) {
	jobID := c.Param("id")
	actor, err := h.actors.forJob(c, jobID)
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}

	if err := h.usecase.DeleteJob(c.Request.Context(), jobID, actor); err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ListJobActivities godoc
// @Summary      Audit trail of a job, newest first
// @Tags         jobs
// @Produce      json
// @Param        id     path   string  true   "Job ID"
// @Param        limit  query  int     false  "Max entries"
// @Success      200  {array}   response.ActivityResponse
// @Failure      400  {object}  pkg.HTTPError
// @Router       /jobs/{id}/activities [get]
func (h *JobHandler) ListJobActivities(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		abortWith(c, errInvalidPayload)
		return
	}

	acts, err := h.usecase.ListActivities(c.Request.Context(), interfaces.ActivityFilter{JobID: c.Param("id"), Limit: limit})
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromActivities(acts))
}

type stageResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ListStages godoc
// @Summary      Pipeline stages in order
// @Tags         jobs
// @Produce      json
// @Success      200  {array}  handlers.stageResponse
// @Router       /stages [get]
func (h *JobHandler) ListStages(c *gin.Context) {
	stages := entities.Stages()
	out := make([]stageResponse, 0, len(stages))
	for _, s := range stages {
		out = append(out, stageResponse{Value: string(s), Label: s.Label()})
	}
	c.JSON(http.StatusOK, out)
}

func queryBool(c *gin.Context, key string) (bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func queryLimit(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errInvalidPayload
	}
	return n, nil
}
