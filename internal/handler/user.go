package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/crm-service/internal/model"
	"github.com/psds-microservice/crm-service/internal/service"
	"github.com/psds-microservice/crm-service/internal/session"
)

type UserHandler struct {
	svc      *service.UserService
	sessions *session.Manager
}

func NewUserHandler(svc *service.UserService, sessions *session.Manager) *UserHandler {
	return &UserHandler{svc: svc, sessions: sessions}
}

// revoke завершает сессии заблокированного или удалённого пользователя.
// Ошибка не прерывает ответ: RequireSession всё равно отклонит такой токен.
func (h *UserHandler) revoke(c *gin.Context, userID string) {
	if err := h.sessions.DestroyUser(c.Request.Context(), userID); err != nil {
		_ = c.Error(err)
	}
}

func (h *UserHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req service.UserInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req service.UserUpdate
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if user.Status != model.UserStatusActive {
		h.revoke(c, user.ID)
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.revoke(c, id)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
