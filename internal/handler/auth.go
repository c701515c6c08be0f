package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/psds-microservice/crm-service/internal/model"
	"github.com/psds-microservice/crm-service/internal/service"
	"github.com/psds-microservice/crm-service/internal/session"
)

const (
	ctxUserID = "userID"
	ctxToken  = "sessionToken"
)

type AuthHandler struct {
	users    *service.UserService
	sessions *session.Manager
}

func NewAuthHandler(users *service.UserService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireSession пропускает запрос только с действующим токеном активного пользователя
// и кладёт id пользователя в контекст. Статус перечитывается на каждом запросе.
func (h *AuthHandler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token := bearerToken(c)
		userID, err := h.sessions.Lookup(ctx, token)
		if err != nil {
			respondError(c, err)
			return
		}
		user, err := h.users.GetByID(ctx, userID)
		if errors.Is(err, errs.ErrUserNotFound) {
			// пользователь удалён при живой сессии
			_ = h.sessions.DestroyUser(ctx, userID)
			err = errs.ErrSessionNotFound
		}
		if err != nil {
			respondError(c, err)
			return
		}
		if user.Status != model.UserStatusActive {
			respondError(c, errs.ErrUserLocked)
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxToken, token)
		c.Next()
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	var missing []string
	if strings.TrimSpace(req.Username) == "" {
		missing = append(missing, "username")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		respondError(c, errs.NewValidation("required", missing...))
		return
	}
	ctx := c.Request.Context()
	user, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := h.sessions.Create(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c.Request.Context(), c.GetString(ctxToken)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), c.GetString(ctxUserID))
	// пользователь удалён при живой сессии
	if errors.Is(err, errs.ErrUserNotFound) {
		err = errs.ErrSessionNotFound
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
