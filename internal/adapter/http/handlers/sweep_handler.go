package handlers

import (
	"net/http"

	response "crm_pipeline/internal/adapter/http/dto/response"
	"crm_pipeline/internal/usecase"

	"github.com/gin-gonic/gin"
)

type SweepHandler struct {
	usecase usecase.ISweepUseCase
}

func NewSweepHandler(uc usecase.ISweepUseCase) *SweepHandler {
	return &SweepHandler{usecase: uc}
}

// RunSweep godoc
// @Summary      Run the estimate sweep now
// @Description  Same work as the scheduled run, under the same lock.
// @Tags         sweeps
// @Produce      json
// @Success      200  {object}  response.SweepResponse
// @Failure      409  {object}  pkg.HTTPError
// @Router       /sweeps [post]
func (h *SweepHandler) RunSweep(c *gin.Context) {
	res, err := h.usecase.Run(c.Request.Context())
	if err != nil {
		abortWith(c, mapJobError(err))
		return
	}
	c.JSON(http.StatusOK, response.FromSweepResult(res))
}

// Ping godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /ping [get]
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
