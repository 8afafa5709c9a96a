package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"karigar-market/internal/auth"
	"karigar-market/internal/cache"
	"karigar-market/internal/config"
	"karigar-market/internal/database"
	"karigar-market/internal/handlers"
	"karigar-market/internal/repository"
	"karigar-market/internal/services"
	"karigar-market/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Optional redis read cache for the public feed
	var postingCache *cache.PostingCache
	if cfg.Redis.URL != "" {
		rdb, err := cache.NewRedisClient(context.Background(), cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		postingCache = cache.NewPostingCache(rdb, 30*time.Second)
		log.Println("Posting cache enabled")
	} else {
		log.Println("REDIS_URL not set, posting cache disabled")
	}

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Live-feed hub for messaging
	hub := ws.NewHub()

	// Initialize services
	authService := services.NewAuthService(database.GetDB())
	userService := services.NewUserService(database.GetDB())
	postingService := services.NewPostingService(repo, postingCache)
	submissionService := services.NewSubmissionService(repo)
	messageService := services.NewMessageService(repo, hub)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	postingHandler := handlers.NewPostingHandler(postingService)
	submissionHandler := handlers.NewSubmissionHandler(submissionService)
	messageHandler := handlers.NewMessageHandler(messageService)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if cfg.App.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.App.FrontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// One request every 2 seconds per IP on the write endpoints
	writeLimiter := handlers.NewIPRateLimiter(rate.Limit(0.5), 3)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", handlers.RateLimitMiddleware(writeLimiter), authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public posting feed
	router.GET("/api/postings", postingHandler.ListOpenPostings)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// User endpoints
		userRoutes := api.Group("/user")
		{
			userRoutes.GET("/profile", userHandler.GetProfile)
			userRoutes.PUT("/profile", userHandler.UpdateProfile)
		}
		api.GET("/users/:id", userHandler.GetUserProfile)

		// Posting endpoints, static segments before :id routes
		api.GET("/postings/mine", postingHandler.ListMyPostings)
		api.POST("/postings", handlers.RateLimitMiddleware(writeLimiter), postingHandler.CreatePosting)
		api.GET("/postings/:id", postingHandler.GetPosting)
		api.POST("/postings/:id/close", postingHandler.ClosePosting)

		// Submission endpoints
		api.POST("/postings/:id/submissions", handlers.RateLimitMiddleware(writeLimiter), submissionHandler.Submit)
		api.GET("/postings/:id/submissions", submissionHandler.ListForPosting)
		api.GET("/submissions/mine", submissionHandler.ListMine)
		api.POST("/submissions/:id/decide", submissionHandler.Decide)

		// Conversation endpoints
		api.GET("/conversations", messageHandler.ListConversations)
		api.GET("/conversations/:peer/messages", messageHandler.ListMessages)
		api.POST("/conversations/:peer/messages", handlers.RateLimitMiddleware(writeLimiter), messageHandler.SendMessage)
	}

	// Websocket feeds (token accepted via query parameter)
	wsRoutes := router.Group("/ws")
	wsRoutes.Use(auth.AuthMiddleware())
	{
		wsRoutes.GET("/conversations/:peer", messageHandler.StreamMessages)
		wsRoutes.GET("/inbox", messageHandler.StreamInbox)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
