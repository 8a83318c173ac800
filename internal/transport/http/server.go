package http

import (
	"github.com/gin-gonic/gin"

	"storechat/internal/bootstrap"
	"storechat/internal/storage"
	"storechat/internal/transport/http/handler"
	"storechat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = app.Config.MaxUploadBytes()

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	if local, ok := app.Store.(*storage.LocalStore); ok {
		router.Static(app.Config.Upload.PublicBaseURL, local.Dir())
	}

	svc := app.Services
	authHandler := handler.NewAuthHandler(svc.Auth)
	chatHandler := handler.NewChatHandler(svc.Sessions, svc.Messages)
	realtimeHandler := handler.NewRealtimeHandler(svc.Realtime)
	uploadHandler := handler.NewUploadHandler(svc.Uploads)
	requireAuth := middleware.AuthJWT(app.Config.Auth.JWTSecret, svc.Auth)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", requireAuth, authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(requireAuth)
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.POST("/sessions/claim", chatHandler.Claim)
	chatGroup.GET("/participants", chatHandler.Participants)
	chatGroup.GET("/messages", chatHandler.GetMessages)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/messages/read", chatHandler.MarkRead)
	chatGroup.POST("/typing", realtimeHandler.SetTyping)
	chatGroup.GET("/typing", realtimeHandler.GetTyping)
	chatGroup.POST("/presence", realtimeHandler.Ping)
	chatGroup.GET("/presence", realtimeHandler.GetPresence)
	chatGroup.POST("/upload", uploadHandler.Upload)

	return router
}
