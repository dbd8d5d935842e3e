// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, security headers, and rate limiting.
//
// The surface splits in two: the bridge endpoints the chat widget and the
// external automation agent call (paths configurable, mounted at the root),
// and the operator CRUD API mounted under the configured base path.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/config"
	"github.com/tbourn/go-agent-bridge/internal/http/handlers"
	"github.com/tbourn/go-agent-bridge/internal/http/middleware"
	"github.com/tbourn/go-agent-bridge/internal/services"
	"github.com/tbourn/go-agent-bridge/internal/ws"
)

// RegisterRoutes attaches all middleware and endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after the logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Rate limiter (per session/IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, registry *ws.Registry, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyBySessionOrIP())
	r.Use(rl.Handler())

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← db/config/registry.
	sessionSvc := services.NewSessionService(db)
	attrSvc := services.NewAttributeService(db)
	webhookSvc := services.NewWebhookService(db, cfg.Bridge, cfg.WebhookTimeout)
	productSvc := services.NewProductService(cfg.ProductTimeout)

	bridge := handlers.NewBridgeHandlers(db, sessionSvc, attrSvc, webhookSvc, productSvc, registry)

	// Bridge surface at the root; paths are deployment-configurable.
	r.GET(cfg.Bridge.QuestionPath, bridge.Question)
	r.GET(cfg.Bridge.AnswerPath, bridge.Answer)
	r.GET(cfg.Bridge.ClientPath, bridge.ClientContext)
	r.GET(cfg.Bridge.RulesPath, bridge.Rules)
	r.GET(cfg.Bridge.ProductsPath, bridge.ProductCatalog)
	r.GET(cfg.Bridge.WSPath+"/:user_id", bridge.Connect)

	clientH := handlers.NewClientHandlers(db)
	userH := handlers.NewUserHandlers(db, sessionSvc)
	settingH := handlers.NewSettingHandlers(db)
	templateH := handlers.NewTemplateHandlers(db)
	attributeH := handlers.NewAttributeHandlers(db)
	commH := handlers.NewCommunicationHandlers(db)

	// Operator CRUD API.
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/clients", clientH.ListClients)
		api.POST("/clients", clientH.CreateClient)
		api.GET("/clients/:id", clientH.GetClient)
		api.PUT("/clients/:id", clientH.UpdateClient)
		api.DELETE("/clients/:id", clientH.DeleteClient)
		api.GET("/clients/:id/attributes", clientH.GetClientAttributes)
		// These two address the client by code; Gin allows only one wildcard
		// name per segment, so they reuse :id.
		api.PUT("/clients/:id/status", clientH.UpdateClientStatus)
		api.GET("/clients/:id/users", userH.ListUsersForClient)

		api.GET("/users", userH.ListUsers)
		api.GET("/users/session", userH.GetUserSession)
		api.GET("/users/:id", userH.GetUser)
		api.POST("/users", userH.CreateUser)
		api.PUT("/users/:id", userH.UpdateUser)
		api.DELETE("/users/:id", userH.DeleteUser)

		api.GET("/settings", settingH.ListSettings)
		api.GET("/settings/:id", settingH.GetSetting)
		api.POST("/settings", settingH.CreateSetting)
		api.PUT("/settings/:id", settingH.UpdateSetting)
		api.DELETE("/settings/:id", settingH.DeleteSetting)

		api.GET("/templates", templateH.ListTemplates)
		api.GET("/templates/:id", templateH.GetTemplate)
		api.POST("/templates", templateH.CreateTemplate)
		api.PUT("/templates/:id", templateH.UpdateTemplate)
		api.PUT("/templates/:id/status", templateH.UpdateTemplateStatus)
		api.DELETE("/templates/:id", templateH.DeleteTemplate)

		api.GET("/attributes", attributeH.ListAttributes)
		api.GET("/attributes/:id", attributeH.GetAttribute)
		api.POST("/attributes", attributeH.CreateAttribute)
		api.PUT("/attributes/:id", attributeH.UpdateAttribute)
		api.DELETE("/attributes/:id", attributeH.DeleteAttribute)

		api.GET("/communications/:session_id", commH.ListBySession)
		api.GET("/statistics/communications/by-month", commH.MonthlyStats)
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
