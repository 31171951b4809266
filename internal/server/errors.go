package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	compliancedomain "github.com/ecoledger/ecoledger/internal/compliance/domain"
	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	creditdomain "github.com/ecoledger/ecoledger/internal/credit/domain"
	dashboarddomain "github.com/ecoledger/ecoledger/internal/dashboard/domain"
	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
	reportdomain "github.com/ecoledger/ecoledger/internal/report/domain"
)

// APIError is the wire shape of every non-2xx response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Code }

var (
	ErrNotFound           = &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrUnauthorized       = &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "unauthorized"}
	ErrServiceUnavailable = &APIError{Status: http.StatusServiceUnavailable, Code: "service_unavailable", Message: "service unavailable"}
)

func invalidRequestError() *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request body"}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{Status: http.StatusUnprocessableEntity, Code: code, Field: field, Message: message}
}

// domainStatus maps service errors to HTTP statuses. Unmapped errors are
// internal.
func domainStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, consumptiondomain.ErrRecordNotFound),
		errors.Is(err, reportdomain.ErrReportNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, consumptiondomain.ErrInvalidOrganization),
		errors.Is(err, dashboarddomain.ErrInvalidOrganization),
		errors.Is(err, compliancedomain.ErrInvalidOrganization),
		errors.Is(err, creditdomain.ErrInvalidOrganization),
		errors.Is(err, reportdomain.ErrInvalidOrganization):
		return http.StatusBadRequest, true
	case errors.Is(err, factordomain.ErrUnknownCategory),
		errors.Is(err, consumptiondomain.ErrInvalidRecord),
		errors.Is(err, consumptiondomain.ErrInvalidQuantity),
		errors.Is(err, consumptiondomain.ErrInvalidUnit),
		errors.Is(err, consumptiondomain.ErrInvalidPeriod),
		errors.Is(err, emissiondomain.ErrUnitMismatch),
		errors.Is(err, emissiondomain.ErrInvalidWindow),
		errors.Is(err, creditdomain.ErrInvalidOffset),
		errors.Is(err, creditdomain.ErrUnknownProject):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, consumptiondomain.ErrRecordImmutable),
		errors.Is(err, emissiondomain.ErrAlreadyComputed),
		errors.Is(err, emissiondomain.ErrRecordNotReady):
		return http.StatusConflict, true
	case errors.Is(err, reportdomain.ErrNoData):
		return http.StatusUnprocessableEntity, true
	}
	return 0, false
}

// AbortWithError writes the error response and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}
	if status, ok := domainStatus(err); ok {
		c.AbortWithStatusJSON(status, gin.H{"error": &APIError{
			Status:  status,
			Code:    err.Error(),
			Message: err.Error(),
		}})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "internal error",
	}})
}
