package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/psds-microservice/crm-service/api"
	"github.com/psds-microservice/crm-service/internal/handler"
	"github.com/psds-microservice/crm-service/internal/logger"
	"github.com/psds-microservice/helpy/paths"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers — набор обработчиков, собранный в application.
type Handlers struct {
	Health    *handler.HealthHandler
	Customers *handler.CustomerHandler
	Tickets   *handler.TicketHandler
	Import    *handler.ImportHandler
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Settings  *handler.SettingsHandler
}

// Options — настройки HTTP-слоя.
type Options struct {
	AllowedOrigins []string
	Log            logrus.FieldLogger
}

func New(h Handlers, opts Options) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(opts.Log))
	corsCfg := cors.DefaultConfig()
	if len(opts.AllowedOrigins) == 0 || (len(opts.AllowedOrigins) == 1 && opts.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.GET(paths.PathHealth, h.Health.Health)
	r.GET(paths.PathReady, h.Health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(paths.PathSwagger+"/openapi.json"))(c)
	})

	session := h.Auth.RequireSession()
	v1 := r.Group("/api")
	{
		v1.GET("/health", h.Health.Health)

		v1.GET("/customers", h.Customers.List)
		v1.POST("/customers", h.Customers.Create)
		v1.GET("/customers/:id", h.Customers.Get)
		v1.PATCH("/customers/:id", h.Customers.Update)
		v1.DELETE("/customers/:id", h.Customers.Delete)
		v1.GET("/customers/:id/summary", h.Customers.Summary)

		v1.GET("/tickets", h.Tickets.List)
		v1.POST("/tickets", h.Tickets.Create)
		v1.GET("/tickets/:id", h.Tickets.Get)
		v1.PATCH("/tickets/:id", h.Tickets.Update)
		v1.PATCH("/tickets/:id/status", h.Tickets.UpdateStatus)
		v1.DELETE("/tickets/:id", h.Tickets.Delete)

		v1.POST("/import", h.Import.Import)
		v1.POST("/import/preview", h.Import.Preview)
		v1.POST("/import/confirm", h.Import.Confirm)

		v1.POST("/auth/login", h.Auth.Login)
		v1.POST("/auth/logout", session, h.Auth.Logout)
		v1.GET("/auth/me", session, h.Auth.Me)

		users := v1.Group("/users", session)
		users.GET("", h.Users.List)
		users.POST("", h.Users.Create)
		users.PATCH("/:id", h.Users.Update)
		users.DELETE("/:id", h.Users.Delete)

		v1.GET("/settings/support", h.Settings.GetSupport)
		v1.PUT("/settings/support", session, h.Settings.PutSupport)
		v1.GET("/stats", h.Settings.Stats)
	}

	return r
}
