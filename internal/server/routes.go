package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware("adstash-api", otelecho.WithSkipper(skipLogging)))
	e.Use(NewEchoLogger(s.logger))
	e.Use(middleware.Recover())

	origins := append([]string{"https://*", "http://*", "chrome-extension://*"}, s.opts.AllowOrigins...)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/api/health", s.healthHandler)

	var authGroup = e.Group("/api/auth")
	authGroup.POST("/session", s.CreateSession)
	authGroup.DELETE("/session", s.DeleteSession)

	var api = e.Group("/api", s.AuthMiddleware)
	api.GET("/me", s.GetMe)
	api.GET("/events", s.eventsHandler)

	var assetGroup = api.Group("/assets")
	assetGroup.GET("", s.ListAssets)
	assetGroup.POST("/init-upload", s.InitUpload)
	assetGroup.POST("/finalize-upload", s.FinalizeUpload)
	assetGroup.GET("/:id", s.GetAsset)
	assetGroup.PATCH("/:id", s.UpdateAsset)
	assetGroup.DELETE("/:id", s.DeleteAsset)

	var tagGroup = api.Group("/tags")
	tagGroup.GET("", s.ListTags)
	tagGroup.POST("", s.CreateTag)
	tagGroup.PATCH("/:id", s.UpdateTag)
	tagGroup.DELETE("/:id", s.DeleteTag)

	var tokenGroup = api.Group("/tokens", s.SessionOnly)
	tokenGroup.GET("", s.ListTokens)
	tokenGroup.POST("", s.CreateToken)
	tokenGroup.DELETE("/:id", s.RevokeToken)

	var sourceGroup = api.Group("/sources")
	sourceGroup.GET("", s.ListSources)
	sourceGroup.POST("", s.CreateSource)
	sourceGroup.DELETE("/:id", s.DeleteSource)

	var extensionGroup = api.Group("/extension", s.TokenOnly, s.ExtensionRateLimiter())
	extensionGroup.GET("/verify", s.VerifyExtension)
	extensionGroup.GET("/tags", s.ListTags)
	extensionGroup.POST("/init-upload", s.ExtensionInitUpload)
	extensionGroup.POST("/finalize-upload", s.FinalizeUpload)
	extensionGroup.POST("/scan", s.ScanPage, middleware.BodyLimit("5M"))

	return e
}
