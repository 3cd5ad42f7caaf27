package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/backuo/backuo-backend/internal/cache"
	"github.com/backuo/backuo-backend/internal/handlers"
	"github.com/backuo/backuo-backend/internal/handlers/ws"
	"github.com/backuo/backuo-backend/internal/metrics"
	"github.com/backuo/backuo-backend/internal/middleware"
	"github.com/backuo/backuo-backend/internal/repository"
	"github.com/backuo/backuo-backend/internal/service"
	"github.com/backuo/backuo-backend/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	app := fiber.New(fiber.Config{
		AppName:   "Backuo Messaging Backend",
		BodyLimit: 1 * 1024 * 1024, // JSON bodies only; media upload lives elsewhere
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Backuo-CSRF",
		AllowMethods:     "GET, POST, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}
	conversationCache := cache.NewConversationCache(redisCache)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	readMarkRepo := repository.NewReadMarkRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	conversationService := service.NewConversationService(conversationRepo, userRepo)
	messageService := service.NewMessageService(messageRepo, conversationRepo)
	readService := service.NewReadService(readMarkRepo, conversationRepo, messageRepo)
	notificationService := service.NewNotificationService(notificationRepo, userRepo)

	// Initialize S3/MinIO storage (best-effort; media endpoints return 503 if missing)
	var s3Store *storage.S3Storage
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: S3 storage not configured: %v", err)
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize S3 storage: %v", err)
	} else {
		s3Store = st
		log.Printf("S3 storage initialized successfully (bucket=%s)", cfg.Bucket)
	}

	mediaBaseURL := os.Getenv("MEDIA_BASE_URL")
	if mediaBaseURL == "" {
		mediaBaseURL = "/api/media/messages"
	}

	// The hub is the single live-channel registry; constructed here and
	// passed into every handler that publishes.
	hub := ws.NewHub()

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(conversationService, readService, hub, conversationCache)
	messageHandler := handlers.NewMessageHandler(conversationService, messageService, readService, hub, conversationCache, mediaBaseURL)
	notificationHandler := handlers.NewNotificationHandler(notificationService, hub)
	mediaHandler := handlers.NewMediaHandler(s3Store)

	api := app.Group("/api", middleware.OriginAllowed())

	// Protected routes
	protected := api.Group("/", middleware.AuthRequired(), middleware.CSRFRequired())

	msgs := protected.Group("/messages", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))
	msgs.Post("/ensure", messageHandler.Ensure)
	msgs.Get("/conversations", messageHandler.GetConversations)
	msgs.Get("/conversations/:id/messages", messageHandler.GetMessages)
	msgs.Post("/conversations/:id/messages", messageHandler.SendMessage)
	msgs.Post("/conversations/:id/read", messageHandler.MarkRead)
	msgs.Post("/send", messageHandler.Send)

	protected.Get("/notifications", notificationHandler.List)
	protected.Post("/notifications", middleware.RequireRole("admin"), notificationHandler.Create)
	protected.Patch("/notifications/read-all", notificationHandler.MarkAllRead)
	protected.Delete("/notifications", notificationHandler.ClearAll)

	protected.Get("/media/messages/*", mediaHandler.GetMessageImage)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Operational endpoints
	app.Get("/metrics", metrics.Handler())
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Backuo messaging is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
