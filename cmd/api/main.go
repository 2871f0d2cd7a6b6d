package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/intertool/cardinsight_api/internal/cache"
	"github.com/intertool/cardinsight_api/internal/config"
	"github.com/intertool/cardinsight_api/internal/database"
	"github.com/intertool/cardinsight_api/internal/handler"
	"github.com/intertool/cardinsight_api/internal/middleware"
	"github.com/intertool/cardinsight_api/internal/repository"
	"github.com/intertool/cardinsight_api/internal/service"
	"github.com/intertool/cardinsight_api/internal/sse"
	"github.com/intertool/cardinsight_api/internal/utils"
	"github.com/intertool/cardinsight_api/internal/worker"
	"github.com/intertool/cardinsight_api/pkg/cardanalysis"
)

// main is the application entrypoint for the CardInsight API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting cardinsight api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := database.Migrate(db.DB, "file://migrations"); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Initialize caches, repositories and the SSE hub
	flowCache := cache.NewLoginFlowCache(redisClient, cfg.Login.FlowTTL)
	logCache := cache.NewLoginLogCache(redisClient)
	adminLoginChallenges := cache.NewChallengeCache(redisClient, "admin:login", cfg.Admin.ChallengeTTL)
	adminCreateChallenges := cache.NewChallengeCache(redisClient, "admin:create", cfg.Admin.ChallengeTTL)

	userRepo := repository.NewUserRepository(db)
	analysisRepo := repository.NewCardAnalysisRepository(db)

	sseHub := sse.NewHub()
	notifier := sse.NewHubNotifier(sseHub)
	tokens := utils.NewTokenManager(cfg.JWTSecret)

	// 5. Initialize the analysis backend client and optional text extraction
	analysisClient := cardanalysis.NewClient(cfg.Analysis.BaseURL, cfg.Analysis.Timeout)

	var extractor service.TextExtractor
	if cfg.AWS.RekognitionEnabled {
		rekog, err := service.NewRekognitionTextExtractor(context.Background(), cfg.AWS.RekognitionRegion)
		if err != nil {
			log.Warn().Err(err).Msg("Rekognition initialization failed - text pre-extraction disabled")
		} else {
			extractor = rekog
			log.Info().Str("region", cfg.AWS.RekognitionRegion).Msg("Rekognition text pre-extraction enabled")
		}
	}

	// 6. Initialize services
	loginSvc := service.NewLoginFlowService(flowCache, logCache, notifier, tokens, cfg.Login)
	adminAuthSvc := service.NewAdminAuthService(adminLoginChallenges, tokens, cfg.Admin)
	userSvc := service.NewUserService(userRepo, adminCreateChallenges)
	analysisSvc := service.NewAnalysisService(analysisClient, extractor, analysisRepo, notifier, cfg.Analysis.MaxImageSize)

	// 7. Initialize handlers
	handlers := &Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": db.PingContext,
			"redis":    redisClient.Ping,
		}),
		LoginFlow: handler.NewLoginFlowHandler(loginSvc),
		AdminAuth: handler.NewAdminAuthHandler(adminAuthSvc),
		User:      handler.NewUserHandler(userSvc),
		Analysis:  handler.NewAnalysisHandler(analysisSvc, cfg.Analysis.MaxImageSize),
		SSE:       handler.NewSSEHandler(sseHub, tokens),
	}

	// 8. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 9. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware(tokens)
	loginLimiter := middleware.NewFailedAttemptLimiter(5, time.Minute, ctx.Done())

	// 9a. Start workers
	if cfg.Analysis.Retention > 0 {
		go worker.NewRetentionWorker(analysisRepo, cfg.Analysis.Retention, cfg.Analysis.PruneInterval).Start(ctx)
	}

	// 10. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	router.MaxMultipartMemory = 2*cfg.Analysis.MaxImageSize + (1 << 20)
	setupRoutes(router, handlers, jwtMw, loginLimiter)

	// 11. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 12. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 13. Cancel context to stop workers
	cancel()

	// 14. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health    *handler.HealthHandler
	LoginFlow *handler.LoginFlowHandler
	AdminAuth *handler.AdminAuthHandler
	User      *handler.UserHandler
	Analysis  *handler.AnalysisHandler
	SSE       *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware, limiter *middleware.FailedAttemptLimiter) {
	api := router.Group("/api")
	api.GET("/health", handlers.Health.GetHealth)

	// Portal login flow
	login := api.Group("/login")
	{
		login.POST("/flows", handlers.LoginFlow.Start)
		login.GET("/flows/:id", handlers.LoginFlow.Get)
		login.POST("/flows/:id/credentials", handlers.LoginFlow.Credentials)
		login.POST("/flows/:id/authenticator", handlers.LoginFlow.Authenticator)
		login.POST("/flows/:id/otp", handlers.LoginFlow.OTP)
		login.POST("/flows/:id/back", handlers.LoginFlow.Back)
		login.GET("/logs", handlers.LoginFlow.Logs)
	}

	// Card analysis (portal session required)
	api.POST("/analyze-card", jwtMiddleware.Require(utils.ScopeUser, utils.ScopeAdmin), handlers.Analysis.Analyze)

	// Admin routes
	admin := api.Group("/admin")
	admin.POST("/auth/login", limiter.Handle(), handlers.AdminAuth.Login)
	admin.POST("/auth/verify", limiter.Handle(), handlers.AdminAuth.Verify)
	admin.GET("/sse", handlers.SSE.Stream)
	admin.Use(jwtMiddleware.Require(utils.ScopeAdmin))
	{
		admin.GET("/users", handlers.User.List)
		admin.POST("/users", handlers.User.Create)
		admin.PUT("/users/:id", handlers.User.Update)
		admin.DELETE("/users/:id", handlers.User.Delete)
		admin.POST("/users/pending/:id/confirm", handlers.User.ConfirmAdmin)
		admin.GET("/stats", handlers.User.Stats)
		admin.GET("/analyses", handlers.Analysis.History)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
