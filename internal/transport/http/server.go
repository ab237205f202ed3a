package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"docqa/internal/bootstrap"
	"docqa/internal/logging"
	"docqa/internal/transport/http/handler"
	"docqa/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	// Document names may contain slashes; clients escape them as %2F.
	router.UseRawPath = true
	router.MaxMultipartMemory = 8 << 20
	router.Use(logging.GinMiddleware(app.Logger), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	sessionHandler := handler.NewSessionHandler(
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.TokenExpireMinute)*time.Minute,
	)
	documentHandler := handler.NewDocumentHandler(app.Documents, app.Config.Extract.MaxFileBytes)
	chatHandler := handler.NewChatHandler(app.Assistant)
	systemHandler := handler.NewSystemHandler(app.Documents, app.Checker)

	v1 := router.Group("/api/v1")
	v1.POST("/sessions", sessionHandler.Create)
	v1.GET("/models", chatHandler.Models)

	documents := v1.Group("/documents")
	documents.POST("", documentHandler.Upload)
	documents.POST("/url", documentHandler.IngestURL)
	documents.GET("", documentHandler.List)
	documents.DELETE("", documentHandler.Clear)
	documents.DELETE("/:filename", documentHandler.Delete)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.SessionJWT(app.Config.Auth.JWTSecret))
	chatGroup.POST("/ask", chatHandler.Ask)
	chatGroup.POST("/stream", chatHandler.Stream)
	chatGroup.GET("/history", chatHandler.History)

	v1.GET("/conversations/recent", chatHandler.Recent)
	v1.GET("/stats", systemHandler.Stats)
	v1.GET("/system/check", systemHandler.Check)

	return router
}
