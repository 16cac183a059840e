package handlers

import (
	"errors"
	"net/http"

	"crm_pipeline/internal/usecase"
	"crm_pipeline/pkg"

	"github.com/gin-gonic/gin"
)

var (
	errInvalidPayload = pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
)

// mapJobError translates use case errors into API errors. It covers every
// engine error; the payment specific ones live in mapPaymentError.
func mapJobError(err error) *pkg.AppError {
	var vErr *usecase.ValidationError
	switch {
	case errors.As(err, &vErr):
		return pkg.NewDomainError("VALIDATION_ERROR", vErr.Error(), err, http.StatusBadRequest)
	case errors.Is(err, usecase.ErrValidation):
		return pkg.NewDomainError("VALIDATION_ERROR", "Invalid request", err, http.StatusBadRequest)
	case errors.Is(err, usecase.ErrJobNotFound):
		return pkg.NewDomainErrorSimple("JOB_NOT_FOUND", "Job not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrCustomerNotFound):
		return pkg.NewDomainErrorSimple("CUSTOMER_NOT_FOUND", "Customer not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrNotFound):
		return pkg.NewDomainError("NOT_FOUND", "Resource not found", err, http.StatusNotFound)
	case errors.Is(err, usecase.ErrSweepInProgress):
		return pkg.NewDomainErrorSimple("SWEEP_IN_PROGRESS", "A sweep is already running", http.StatusConflict)
	case errors.Is(err, usecase.ErrInvalidTransition):
		return pkg.NewDomainError("INVALID_TRANSITION", err.Error(), err, http.StatusConflict)
	case errors.Is(err, usecase.ErrMissingActor):
		return pkg.NewDomainErrorSimple("MISSING_ACTOR", "Acting user is required", http.StatusUnauthorized)
	case errors.Is(err, usecase.ErrInactiveUser):
		return pkg.NewDomainErrorSimple("INACTIVE_USER", "Acting user is not active", http.StatusUnauthorized)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}

// abortWith writes appErr and records the cause for the request logger.
func abortWith(c *gin.Context, appErr *pkg.AppError) {
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		_ = c.Error(appErr)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToHTTPError())
}
