package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/thereayou/chatline/internal/attachments"
	"github.com/thereayou/chatline/internal/chat"
	"github.com/thereayou/chatline/internal/database"
	"github.com/thereayou/chatline/internal/handlers"
	"github.com/thereayou/chatline/internal/rooms"
	"github.com/thereayou/chatline/internal/websocket"
	"github.com/thereayou/chatline/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	Hub        *websocket.Hub
	JWTManager *auth.JWTManager
}

func NewServer() *Server {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(); err != nil {
		log.Fatalf("Postgres connect failed: %v", err)
	}

	redisOpts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis connect failed: %v", err)
	}

	jwtMgr := auth.NewJWTManager(
		os.Getenv("JWT_SECRET"),
		24*time.Hour,
	)

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	attachmentStore, err := attachments.NewStore(uploadDir, "/uploads")
	if err != nil {
		log.Fatalf("Upload dir init failed: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	resolver := rooms.NewResolver(dbConn, membersCacheTTL())
	pipeline := chat.NewPipeline(dbConn, resolver)
	dispatcher := chat.NewDispatcher(hub)

	authH := handlers.NewAuthHandler(dbConn, jwtMgr, rdb)
	userH := handlers.NewUserHandler(dbConn)
	roomH := handlers.NewRoomHandler(dbConn, hub, resolver)
	msgH := handlers.NewHTTPMessageHandler(dbConn, pipeline, dispatcher)
	uploadH := handlers.NewUploadHandler(dbConn, attachmentStore, pipeline, dispatcher)
	wsMsgH := handlers.NewMessageHandler(dbConn, hub, pipeline, dispatcher, resolver)
	wsH := handlers.NewWebSocketHandler(hub, wsMsgH)

	router := gin.Default()
	APIEndpoints(router, jwtMgr, rdb, uploadDir, authH, userH, roomH, msgH, uploadH, wsH)

	return &Server{
		Router:     router,
		DB:         dbConn,
		Redis:      rdb,
		Hub:        hub,
		JWTManager: jwtMgr,
	}
}

func membersCacheTTL() time.Duration {
	seconds, err := strconv.Atoi(os.Getenv("MEMBERS_CACHE_TTL"))
	if err != nil || seconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func (s *Server) Run() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.Router,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server run error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	s.Hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
