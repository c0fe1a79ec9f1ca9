package server

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/chatline/internal/handlers"
	"github.com/thereayou/chatline/internal/middleware"
	"github.com/thereayou/chatline/pkg/auth"
)

func APIEndpoints(
	r *gin.Engine,
	jwtMgr *auth.JWTManager,
	rdb *redis.Client,
	uploadDir string,
	authH *handlers.AuthHandler,
	userH *handlers.UserHandler,
	roomH *handlers.RoomHandler,
	msgH *handlers.HTTPMessageHandler,
	uploadH *handlers.UploadHandler,
	wsH *handlers.WebSocketHandler,
) {
	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/logout", authH.Logout)
	}

	// Загруженные вложения
	r.Static("/uploads", uploadDir)

	// WebSocket
	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, rdb), wsH.HandleWebSocket)

	// API endpoints
	api := r.Group("/api/v1", middleware.AuthMiddleware(jwtMgr, rdb))
	{
		users := api.Group("/users")
		{
			users.GET("/me", userH.GetMe)
			users.PUT("/me", userH.UpdateMe)
			users.GET("/search", userH.SearchUsers)
			users.GET("/:id", userH.GetUser)
		}

		roomsGroup := api.Group("/rooms")
		{
			roomsGroup.POST("", roomH.CreateRoom)
			roomsGroup.GET("", roomH.GetMyRooms)
			roomsGroup.GET("/:id", roomH.GetRoom)
			roomsGroup.PUT("/:id", roomH.UpdateRoom)
			roomsGroup.DELETE("/:id", roomH.DeleteRoom)
			roomsGroup.POST("/:id/join", roomH.JoinRoom)
			roomsGroup.POST("/:id/leave", roomH.LeaveRoom)
			roomsGroup.GET("/:id/members", roomH.GetRoomMembers)
			roomsGroup.GET("/:id/messages", msgH.GetRoomMessages)
			roomsGroup.POST("/:id/messages", msgH.SendMessage)
			roomsGroup.POST("/:id/upload", uploadH.Upload)
		}
	}
}
