package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/psds-microservice/crm-service/internal/model"
	"github.com/psds-microservice/crm-service/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	orphan := &model.Customer{ID: "c-1"}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: errs.NewValidation("required", "title"), want: http.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("load: %w", errs.ErrCustomerNotFound), want: http.StatusNotFound},
		{name: "conflict", err: errs.ErrCustomerHasTickets, want: http.StatusConflict},
		{name: "session", err: errs.ErrSessionNotFound, want: http.StatusUnauthorized},
		{name: "locked", err: errs.ErrUserLocked, want: http.StatusForbidden},
		{name: "manual assignment", err: errs.ErrManualAssignmentRequired, want: http.StatusUnprocessableEntity},
		{name: "partial", err: &reconcile.PartialImportError{Customer: orphan, Err: errors.New("db down")}, want: http.StatusInternalServerError},
		{
			name: "partial wrapping validation",
			err:  &reconcile.PartialImportError{Customer: orphan, Err: errs.NewValidation("invalid value", "customerId")},
			want: http.StatusInternalServerError,
		},
		{
			name: "partial wrapping not found",
			err:  &reconcile.PartialImportError{Customer: orphan, Err: fmt.Errorf("create ticket: %w", errs.ErrCustomerNotFound)},
			want: http.StatusInternalServerError,
		},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}

func TestRespondImportError_PartialKeepsCustomer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondImportError(c, &reconcile.PartialImportError{
		Customer: &model.Customer{ID: "c-1", Email: "max@muster.de"},
		Err:      errs.NewValidation("invalid value", "customerId"),
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, reconcile.OutcomePartial, body["outcome"])
	assert.NotContains(t, body, "fields")
	assert.Contains(t, body["error"], "customer c-1 created")
	assert.Equal(t, "c-1", body["customer"].(map[string]interface{})["id"])
}
