package handlers

import (
	"crm_pipeline/internal/adapter/http/middleware"
	"crm_pipeline/internal/usecase"

	"github.com/gin-gonic/gin"
)

// actorSource resolves the user an audited request is attributed to.
type actorSource struct {
	resolver usecase.IActorResolver
	jobs     usecase.IJobUseCase
}

// forJob falls back to the job creator for anonymous requests.
func (a actorSource) forJob(c *gin.Context, jobID string) (string, error) {
	requested := middleware.UserID(c)
	owner := ""
	if requested == "" && a.jobs != nil {
		j, err := a.jobs.GetJob(c.Request.Context(), jobID)
		if err != nil {
			return "", err
		}
		owner = j.CreatedBy
	}
	return a.resolver.Resolve(c.Request.Context(), requested, owner)
}

func (a actorSource) forNew(c *gin.Context) (string, error) {
	return a.resolver.Resolve(c.Request.Context(), middleware.UserID(c), "")
}
