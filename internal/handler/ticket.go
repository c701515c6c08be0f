package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/crm-service/internal/model"
	"github.com/psds-microservice/crm-service/internal/service"
)

type TicketHandler struct {
	svc *service.TicketService
}

func NewTicketHandler(svc *service.TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req service.TicketInput
	if !bindJSON(c, &req) {
		return
	}
	ticket, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) Get(c *gin.Context) {
	t, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) List(c *gin.Context) {
	filter := service.TicketFilter{
		CustomerID: c.Query("customerId"),
		Status:     model.TicketStatus(c.Query("status")),
	}
	items, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *TicketHandler) Update(c *gin.Context) {
	var req service.TicketUpdate
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type statusRequest struct {
	Status model.TicketStatus `json:"status"`
}

func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
