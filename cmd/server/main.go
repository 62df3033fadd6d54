package main

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"whatido/internal/config"
	"whatido/internal/database"
	"whatido/internal/handlers"
	"whatido/internal/jobs"
	"whatido/internal/llm"
	"whatido/internal/logging"
	"whatido/internal/middleware"
	"whatido/internal/services"
	"whatido/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting What I Do server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err == nil {
		log.Println("✅ .env file loaded")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, DailyPostLimit: %d, SummaryCutoff: %02d:00)",
		cfg.Port, cfg.DailyPostLimit, cfg.SummaryCutoffHour)

	// Database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// JWT auth
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		if os.Getenv("ENVIRONMENT") == "production" {
			log.Fatal("❌ JWT_SECRET is required in production. Generate with: openssl rand -hex 32")
		}
		// Ephemeral secret for development; sessions do not survive restarts
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("❌ Failed to generate dev JWT secret: %v", err)
		}
		jwtSecret = hex.EncodeToString(b)
		log.Println("⚠️  JWT_SECRET not set, using an ephemeral development secret")
	}

	jwtAuth, err := auth.NewJWTAuth(jwtSecret, 0, 0)
	if err != nil {
		log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
	}

	// Services
	metrics := services.InitMetrics()
	userService := services.NewUserService(db)
	postService := services.NewPostService(db, cfg.DailyPostLimit, metrics)
	profileService := services.NewProfileService(db, cfg.UsernameCooldown)

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	summaryService := services.NewSummaryService(db, llmClient, cfg.SummaryCutoffHour, metrics)
	if cfg.LLMAPIKey == "" {
		log.Println("⚠️  LLM_API_KEY not set, summary generation will fail")
	} else {
		log.Printf("🤖 Summary model: %s", llmClient.Model())
	}

	// Nightly pre-generation of summaries (optional)
	var nightly *jobs.NightlySummaries
	if cfg.NightlySummaries {
		nightly, err = jobs.NewNightlySummaries(summaryService, cfg.SummaryCutoffHour)
		if err != nil {
			log.Fatalf("❌ Failed to create nightly summary job: %v", err)
		}
		if err := nightly.Start(); err != nil {
			log.Fatalf("❌ Failed to start nightly summary job: %v", err)
		}
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(jwtAuth, userService)
	postHandler := handlers.NewPostHandler(postService)
	summaryHandler := handlers.NewSummaryHandler(summaryService)
	profileHandler := handlers.NewProfileHandler(profileService)
	healthHandler := handlers.NewHealthHandler(db)

	app := fiber.New(fiber.Config{
		AppName:   "What I Do v1.0",
		BodyLimit: 64 * 1024, // Posts are short text, keep bodies small
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("whatido")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Rate limiting
	rateLimits := middleware.LoadRateLimitConfig()
	app.Use("/api", rateLimits.GlobalLimiter())

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: allowedOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	app.Get("/health", healthHandler.Handle)

	authRoutes := app.Group("/api/auth", rateLimits.AuthLimiter())
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/refresh", authHandler.RefreshToken)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", middleware.AuthMiddleware(jwtAuth), authHandler.GetCurrentUser)

	api := app.Group("/api", middleware.AuthMiddleware(jwtAuth),
		rateLimits.UserLimiter(rateLimits.AuthenticatedMax, rateLimits.AuthenticatedExpiration))
	api.Post("/posts", postHandler.Create)
	api.Get("/posts", postHandler.Feed)
	api.Get("/summaries/:date",
		rateLimits.UserLimiter(rateLimits.SummaryMax, rateLimits.SummaryExpiration),
		summaryHandler.Get)
	api.Get("/profile", profileHandler.Get)
	api.Put("/profile", profileHandler.UpdateUsername)

	// Catch-all for unknown API paths
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	})

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down...")
		if nightly != nil {
			if err := nightly.Stop(); err != nil {
				log.Printf("⚠️ Failed to stop nightly job: %v", err)
			}
		}
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Server shutdown error: %v", err)
		}
	}()

	log.Printf("🌐 Listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}
