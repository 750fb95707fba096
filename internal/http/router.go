package api

import (
	"log"
	stdhttp "net/http"

	intconfig "backoffice/internal/config"
	h "backoffice/internal/http/handlers"
	"backoffice/internal/http/middleware"
	"backoffice/internal/listing"

	"github.com/gin-gonic/gin"
)

// AdminRoles may use the /api/admin endpoints.
var AdminRoles = []string{"owner", "admin"}

func NewRouter(env intconfig.Env, svc listing.Service) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.CORS(env.CORSAllowedOrigins), middleware.Logger(), gin.Recovery())
	r.MaxMultipartMemory = h.MaxMultipartMemory

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		admin := api.Group("/admin", middleware.Actor(env.JWTSecret), middleware.RequireRoles(AdminRoles...))
		mountAdmin(admin, h.Admin{Service: svc})
	}

	h.SetRouter(r)
	return r
}

func mountAdmin(g *gin.RouterGroup, a h.Admin) {
	g.GET("/:entity", a.List)
	g.POST("/:entity", a.Create)
	g.GET("/:entity/:id", a.Get)
	g.PUT("/:entity/:id", a.Update)
	g.DELETE("/:entity/:id", a.Delete)
	g.POST("/:entity/:id/transition", a.Transition)
	g.POST("/:entity/:id/toggle/:flag", a.Toggle)
}
