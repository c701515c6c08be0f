package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/psds-microservice/crm-service/internal/reconcile"
)

// statusOf — единственное место сопоставления ошибок с HTTP-статусами.
func statusOf(err error) int {
	var partial *reconcile.PartialImportError
	switch {
	// частичный импорт — сбой сервера, даже если причина тикета была валидационной
	case errors.As(err, &partial):
		return http.StatusInternalServerError
	case errs.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrCustomerNotFound),
		errors.Is(err, errs.ErrTicketNotFound),
		errors.Is(err, errs.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrCustomerHasTickets),
		errors.Is(err, errs.ErrUsernameTaken),
		errors.Is(err, errs.ErrLastUser):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalidCredentials),
		errors.Is(err, errs.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrUserLocked):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrExtractionUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrExtractionFailed):
		return http.StatusBadGateway
	case errors.Is(err, errs.ErrManualAssignmentRequired):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error, status int) gin.H {
	body := gin.H{"error": err.Error()}
	var v *errs.ValidationError
	if status == http.StatusBadRequest && errors.As(err, &v) {
		body["fields"] = v.Fields
	}
	// детали внутренних ошибок остаются в логе
	if status == http.StatusInternalServerError && reconcile.OutcomeOf(err) != reconcile.OutcomePartial {
		body["error"] = "internal error"
	}
	return body
}

func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorBody(err, status))
}

// respondImportError дополняет ответ исходом импорта и созданным клиентом при частичном сбое.
func respondImportError(c *gin.Context, err error) {
	status := statusOf(err)
	body := errorBody(err, status)
	body["outcome"] = reconcile.OutcomeOf(err)
	var partial *reconcile.PartialImportError
	if errors.As(err, &partial) {
		body["customer"] = partial.Customer
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// bindJSON разбирает тело запроса; при ошибке отвечает 400.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return false
	}
	return true
}
