package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/crm-service/internal/extraction"
	"github.com/psds-microservice/crm-service/internal/service"
)

type CustomerHandler struct {
	svc        *service.CustomerService
	tickets    *service.TicketService
	summarizer extraction.Summarizer
	// summaryTimeout ограничивает ожидание модели, как EXTRACTION_TIMEOUT для импорта
	summaryTimeout time.Duration
}

func NewCustomerHandler(svc *service.CustomerService, tickets *service.TicketService, summarizer extraction.Summarizer, summaryTimeout time.Duration) *CustomerHandler {
	if summaryTimeout <= 0 {
		summaryTimeout = 30 * time.Second
	}
	return &CustomerHandler{svc: svc, tickets: tickets, summarizer: summarizer, summaryTimeout: summaryTimeout}
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var req service.CustomerInput
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *CustomerHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) Update(c *gin.Context) {
	var req service.CustomerInput
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// Summary — краткий пересказ истории обращений клиента генеративной моделью.
func (h *CustomerHandler) Summary(c *gin.Context) {
	ctx := c.Request.Context()
	customer, err := h.svc.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	tickets, err := h.tickets.List(ctx, service.TicketFilter{CustomerID: customer.ID})
	if err != nil {
		respondError(c, err)
		return
	}
	interactions := make([]string, 0, len(tickets))
	for _, t := range tickets {
		interactions = append(interactions, fmt.Sprintf("%s (%s, %s): %s", t.Title, t.Status, t.CreatedAt, t.Description))
	}
	sctx, cancel := context.WithTimeout(ctx, h.summaryTimeout)
	defer cancel()
	summary, err := h.summarizer.Summarize(sctx, customer.Name, interactions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customerId": customer.ID, "summary": summary})
}
