package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"solace/internal/audio"
	"solace/internal/cards"
	"solace/internal/config"
	"solace/internal/handlers"
	"solace/internal/jobs"
	"solace/internal/logging"
	"solace/internal/middleware"
	"solace/internal/policy"
	"solace/internal/providers"
	"solace/internal/services"
	"solace/internal/session"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Solace Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, provider: %s)", cfg.Port, cfg.ProviderBaseURL)

	// Session store and proactive policy engine
	store := session.NewStore(cfg.HistoryWindow, cfg.SessionTTL)
	engine := policy.NewEngine(store, policy.Config{
		SadnessLabel:     cfg.SadnessLabel,
		AngerLabel:       cfg.AngerLabel,
		SadnessThreshold: cfg.SadnessThreshold,
		AngerThreshold:   cfg.AngerThreshold,
		SilenceWindow:    cfg.SilenceWindow,
		CooldownWindow:   cfg.CooldownWindow,
	})
	builder := cards.NewBuilder()

	// Provider client (OpenAI-compatible; the credential travels per-request)
	provider := providers.NewClient(providers.Config{
		BaseURL:     cfg.ProviderBaseURL,
		STTModel:    cfg.STTModel,
		ChatModel:   cfg.ChatModel,
		SearchModel: cfg.SearchModel,
		TTSModel:    cfg.TTSModel,
		RateLimit:   cfg.ProviderRateLimit,
	})

	// Audio transcoder (degrades gracefully when ffmpeg is missing)
	transcoder := audio.NewTranscoder(cfg.FFmpegPath)

	// Persona registry with hot reload
	personaService, err := services.NewPersonaService(cfg.PersonasPath)
	if err != nil {
		log.Fatalf("❌ Failed to load personas from %s: %v", cfg.PersonasPath, err)
	}
	if err := personaService.Validate(); err != nil {
		log.Fatalf("❌ Invalid persona registry: %v", err)
	}
	go startPersonasFileWatcher(cfg.PersonasPath, personaService)

	// Metrics, turn log shipping, chat pipeline
	metrics := services.InitMetrics(store)
	turnlogService := services.NewTurnLogService(cfg.TurnLogEndpoint, cfg.TurnLogToken)
	chatService := services.NewChatService(
		store, engine, builder, provider, transcoder,
		personaService, turnlogService, metrics, cfg,
	)

	// Background session stats job
	statsReporter, err := jobs.NewStatsReporter(store, cfg.StatsInterval)
	if err != nil {
		log.Fatalf("❌ Failed to create stats reporter: %v", err)
	}
	statsReporter.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Solace v1.0",
		ReadTimeout:  300 * time.Second, // STT + LLM + TTS round trips can be slow
		WriteTimeout: 300 * time.Second, // streaming replies
		IdleTimeout:  300 * time.Second,
		BodyLimit:    30 * 1024 * 1024, // voice uploads cap at 25MB plus form overhead
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("solace")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Load rate limiting configuration
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Chat=%d/min, Feedback=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.ChatMax,
		rateLimitConfig.FeedbackMax,
	)

	// CORS configuration with environment-based origins
	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		// Default to localhost for development
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}

	// Fiber's CORS middleware does not allow AllowCredentials with wildcard origins.
	allowCredentials := allowedOrigins != "*"

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-API-KEY",
		AllowCredentials: allowCredentials,
	}))

	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	// Global API rate limiter
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Println("🛡️  [RATE-LIMIT] Global API rate limiter enabled")

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(store)
	sessionHandler := handlers.NewSessionHandler(store)
	chatHandler := handlers.NewChatHandler(chatService)
	feedbackHandler := handlers.NewFeedbackHandler(engine, metrics)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/session", sessionHandler.Create)
	api.Post("/settings", sessionHandler.UpdateSettings)
	api.Post("/emotion", sessionHandler.PushEmotion)
	api.Post("/events", sessionHandler.LogEvent)
	api.Post("/chat", middleware.ChatRateLimiter(rateLimitConfig), chatHandler.Chat)
	api.Post("/chat/stream", middleware.ChatRateLimiter(rateLimitConfig), chatHandler.ChatStream)
	api.Post("/proactive/feedback", middleware.FeedbackRateLimiter(rateLimitConfig), feedbackHandler.Handle)

	log.Printf("🌐 Server starting on port %s", cfg.Port)
	log.Printf("🎙️  Chat endpoint: http://localhost:%s/api/chat", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		statsReporter.Stop()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// startPersonasFileWatcher watches personas.json for changes and hot-reloads
func startPersonasFileWatcher(filePath string, personaService *services.PersonaService) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		watcher.Close()
		return
	}

	// Watch the directory containing the file (more reliable than watching the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", filePath)

	// Debounce timer to avoid multiple reloads for rapid file changes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}

				debounceTimer = time.AfterFunc(debounceDuration, func() {
					log.Printf("🔄 Detected changes in %s, reloading personas...", filePath)

					if err := personaService.Reload(); err != nil {
						log.Printf("❌ Failed to reload personas after file change: %v", err)
					}
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
