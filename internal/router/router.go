package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/krishimitra/krishimitra-api/internal/ai"
	"github.com/krishimitra/krishimitra-api/internal/cache"
	"github.com/krishimitra/krishimitra-api/internal/config"
	"github.com/krishimitra/krishimitra-api/internal/handlers"
	"github.com/krishimitra/krishimitra-api/internal/knowledge"
	"github.com/krishimitra/krishimitra-api/internal/logger"
	"github.com/krishimitra/krishimitra-api/internal/market"
	"github.com/krishimitra/krishimitra-api/internal/middleware"
	"github.com/krishimitra/krishimitra-api/internal/repository"
	"github.com/krishimitra/krishimitra-api/internal/service"
	"github.com/krishimitra/krishimitra-api/internal/translate"
	"github.com/krishimitra/krishimitra-api/internal/weather"
	"github.com/krishimitra/krishimitra-api/internal/ws"
	"gorm.io/gorm"
)

// SetupRouter sets up the Gin router.
func SetupRouter(cfg *config.Config, database *gorm.DB, kb *knowledge.Base) *gin.Engine {
	// Create default Gin router
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	corsConfig.AllowOrigins = []string{
		"https://krishimitra.app",
		"https://www.krishimitra.app",
		"https://api.krishimitra.app",
	}
	r.Use(cors.New(corsConfig))

	// Add request ID middleware for request correlation
	r.Use(logger.RequestIDMiddleware())

	// Ping route for testing
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Device-related routes setup
	deviceRepo := repository.NewDeviceRepository(database)
	deviceService := service.NewDeviceService(cfg, deviceRepo)
	deviceHandler := handlers.NewDeviceHandler(deviceService)

	// AI provider setup. The completion provider is fixed here, at
	// configuration time: OpenRouter when its key is present, Anthropic as
	// the alternate, and the canned demo provider when neither is set.
	var completionProvider ai.CompletionProvider
	var visionProvider ai.VisionProvider
	switch {
	case cfg.EnvVars.OpenRouterAPIKey != "":
		p := ai.NewOpenRouterProvider(cfg.EnvVars.OpenRouterAPIKey, cfg.EnvVars.OpenRouterModel)
		completionProvider = p
		visionProvider = p
	case cfg.EnvVars.AnthropicAPIKey != "":
		completionProvider = ai.NewAnthropicProvider(cfg.EnvVars.AnthropicAPIKey)
	default:
		completionProvider = ai.NewDemoProvider(knowledge.DetectLanguage, cfg.Prompts.DemoReply)
	}

	// Conversation routes setup
	matcher := knowledge.NewMatcher(kb)
	sessionRepo := repository.NewSessionRepository(database)
	conversationService := service.NewConversationService(cfg, sessionRepo, matcher, completionProvider)
	sessionHandler := handlers.NewSessionHandler(conversationService)

	// Shared keyed cache for remote data
	dataCache := cache.New()

	marketHandler := handlers.NewMarketHandler(market.NewClient(cfg.EnvVars.AgmarknetAPIKey, dataCache))
	weatherHandler := handlers.NewWeatherHandler(
		weather.NewClient(dataCache),
		weather.NewGeocoder(cfg.EnvVars.OpenCageAPIKey),
	)
	translateHandler := handlers.NewTranslateHandler(translate.NewClient(dataCache))

	// Scheme routes setup
	bookmarkRepo := repository.NewBookmarkRepository(database)
	schemeService := service.NewSchemeService(cfg, completionProvider, bookmarkRepo)
	schemeHandler := handlers.NewSchemeHandler(schemeService)

	// Group for API routes that don't require token verification
	apiPublic := r.Group("/v1")
	{
		apiPublic.Use(middleware.RateLimitByIP(5, 10, 10*time.Minute, time.Hour))

		// Register a new anonymous device
		apiPublic.POST("/devices", deviceHandler.RegisterDevice)
		// Re-authenticate with the stored device secret
		apiPublic.POST("/auth/login", deviceHandler.Login)
		// Refresh an access token
		apiPublic.POST("/auth/refresh", deviceHandler.RefreshToken)
	}

	// Group for API routes that require token verification
	apiProtected := r.Group("/v1")
	{
		apiProtected.Use(middleware.VerifyTokenMiddleware(cfg))

		// Device profile and settings
		apiProtected.GET("/devices/me", middleware.AttachDeviceToContext(deviceService), deviceHandler.GetMe)
		apiProtected.PUT("/devices/me/settings", deviceHandler.UpdateSettings)

		// Session-related routes
		apiProtected.GET("/sessions", sessionHandler.ListSessions)
		apiProtected.POST("/sessions", sessionHandler.CreateSession)
		apiProtected.GET("/sessions/:session_id", sessionHandler.GetSession)
		apiProtected.POST("/sessions/:session_id/messages", sessionHandler.PostMessage)

		// Scheme routes
		apiProtected.GET("/schemes/:name/explain", schemeHandler.ExplainScheme)
		apiProtected.POST("/schemes/recommend", schemeHandler.RecommendSchemes)
		apiProtected.POST("/schemes/bookmarks", schemeHandler.CreateBookmark)
		apiProtected.GET("/schemes/bookmarks", schemeHandler.ListBookmarks)
		apiProtected.DELETE("/schemes/bookmarks/:bookmark_id", schemeHandler.DeleteBookmark)

		// Remote data routes
		apiProtected.GET("/market/prices", marketHandler.GetPrices)
		apiProtected.GET("/weather/forecast", weatherHandler.GetForecast)
		apiProtected.GET("/weather/reverse", weatherHandler.ReverseGeocode)
		apiProtected.POST("/translate", translateHandler.Translate)
	}

	// Pest diagnosis needs a vision-capable provider; without one the
	// route reports the missing credential instead of failing mid-request.
	diagnosisService := service.NewDiagnosisService(cfg, visionProvider)
	diagnosisHandler := handlers.NewDiagnosisHandler(diagnosisService)
	apiProtected.POST("/diagnosis", middleware.RateLimitByIP(1, 3, 10*time.Minute, time.Hour), diagnosisHandler.Diagnose)

	// WebSocket routes (authenticated via query param token)
	hub := ws.NewHub()
	go hub.Run()
	var speechProvider ai.SpeechProvider
	if cfg.EnvVars.GroqAPIKey != "" {
		speechProvider = ai.NewGroqWhisperProvider(cfg.EnvVars.GroqAPIKey)
	}
	var voiceProvider ai.VoiceProvider
	if cfg.EnvVars.ElevenLabsAPIKey != "" {
		voiceProvider = ai.NewElevenLabsProvider(cfg.EnvVars.ElevenLabsAPIKey)
	}
	voiceService := service.NewVoiceService(cfg, speechProvider, voiceProvider)
	voiceHandler := ws.NewVoiceHandler(hub, cfg.EnvVars.JwtSecretKey, deviceService, conversationService, voiceService)
	r.GET("/v1/ws/voice/:session_id", voiceHandler.HandleVoiceSession)

	return r
}
