package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/crm-service/internal/extraction"
	"github.com/psds-microservice/crm-service/internal/reconcile"
)

type ImportHandler struct {
	importer *reconcile.Importer
}

func NewImportHandler(importer *reconcile.Importer) *ImportHandler {
	return &ImportHandler{importer: importer}
}

type importRequest struct {
	Text string `json:"text"`
}

// Preview: извлечение и решение о клиенте без записи.
func (h *ImportHandler) Preview(c *gin.Context) {
	var req importRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.importer.Preview(c.Request.Context(), req.Text)
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ImportHandler) Import(c *gin.Context) {
	var req importRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.importer.Import(c.Request.Context(), req.Text)
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Confirm сохраняет проверенные оператором поля из Preview.
func (h *ImportHandler) Confirm(c *gin.Context) {
	var req extraction.Extracted
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.importer.Commit(c.Request.Context(), req)
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
