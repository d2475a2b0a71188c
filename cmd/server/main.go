package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/config"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/crm"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/handler"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/logger"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/metrics"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/repository"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})
	log.Info().Str("version", Version).Str("build_time", BuildTime).
		Str("git_commit", GitCommit).Msg("Layla leasing agent starting")

	gin.SetMode(cfg.Server.GinMode)
	m := metrics.New()

	// Listing store: Postgres when configured, in-memory otherwise.
	var (
		store   service.ListingStore
		updater handler.EmbeddingStore
		ledger  service.BookingLedger
	)
	if dsn := cfg.GetPostgresDSN(); dsn != "" {
		pg, err := repository.NewPostgresStore(dsn, cfg.Postgres.MaxConnections, cfg.Postgres.MaxIdleConnections)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pg.Close()
		store = pg
		updater = pg
		ledger = repository.NewPostgresLedger(pg.DB())
		log.Info().Msg("Connected to PostgreSQL")
	} else {
		mem := repository.NewMemoryStore(nil)
		store = mem
		updater = mem
		ledger = repository.NewMemoryLedger()
		log.Warn().Msg("No database configured, using in-memory store")
	}

	var openaiClient *service.OpenAIClient
	if cfg.OpenAI.Enabled {
		openaiClient = service.NewOpenAIClient(&cfg.OpenAI, log)
		log.Info().
			Str("api_base", cfg.OpenAI.APIBase).
			Str("chat_model", cfg.OpenAI.ChatModel).
			Str("embedding_model", cfg.OpenAI.EmbeddingModel).
			Msg("OpenAI client initialized")
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, running with rule-based extraction and keyword search only")
	}

	var leads service.LeadPublisher
	if cfg.CRM.AMQPURL != "" {
		publisher, err := crm.NewPublisher(cfg.CRM.AMQPURL, cfg.CRM.Exchange, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to CRM broker")
		}
		defer publisher.Close()
		leads = publisher
		log.Info().Str("exchange", cfg.CRM.Exchange).Msg("CRM lead publisher connected")
	} else {
		log.Info().Msg("CRM_AMQP_URL not set, lead publishing disabled")
	}

	extractor := service.NewIntentExtractor(openaiClient, log)
	searchService := service.NewSearchService(store, openaiClient, m, log, cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	calendarService := service.NewCalendarService(ledger, cfg.Tour.SlotTimes, cfg.Tour.WindowDays)
	composer := service.NewComposer(openaiClient, log)
	conversation := service.NewConversationService(
		extractor, searchService, calendarService, ledger, composer, leads, m, log)

	chatHandler := handler.NewChatHandler(conversation)
	embeddingHandler := handler.NewEmbeddingHandler(updater, cfg.OpenAI.EmbeddingDimensions)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "X-API-Key"}
	router.Use(cors.New(corsConfig))

	// Liveness only; no collaborator calls.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "layla-leasing-agent",
			"version": Version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(handler.APIKeyAuth(cfg.Server.APIKey))
	{
		api.POST("/chat", chatHandler.Chat)
		api.POST("/embeddings/batch", embeddingHandler.BatchUpdate)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
