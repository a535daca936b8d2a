package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/localaid/localaid-api/internal/config"
	"github.com/localaid/localaid-api/internal/database"
	"github.com/localaid/localaid-api/internal/handler"
	"github.com/localaid/localaid-api/internal/middleware"
	"github.com/localaid/localaid-api/internal/models"
	"github.com/localaid/localaid-api/internal/repository"
	"github.com/localaid/localaid-api/internal/router"
	"github.com/localaid/localaid-api/internal/service"
	"github.com/localaid/localaid-api/pkg/ai"
	cloud "github.com/localaid/localaid-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.Conversation{}, &models.Message{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, caching and replication disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NatsURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, cross-node replication disabled")
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName:  cfg.CloudinaryCloudName,
		APIKey:     cfg.CloudinaryAPIKey,
		APISecret:  cfg.CloudinaryAPISecret,
		BaseFolder: cfg.CloudinaryFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	var summarizer ai.Summarizer
	if cfg.OpenAIAPIKey != "" {
		openaiSummarizer, err := ai.NewOpenAISummarizer(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("openai summarizer disabled")
		} else {
			summarizer = openaiSummarizer
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	realtimeService := service.NewRealtimeService(redisClient, cfg.RealtimeChannel, natsConn, logger)
	realtimeService.Start(shutdownCtx)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, validate, logger)
	chatService := service.NewChatService(conversationRepo, messageRepo, userRepo, realtimeService, validate, logger)
	postService := service.NewPostService(postRepo, userRepo, realtimeService, validate, logger)
	trendService := service.NewTrendService(postRepo, redisClient, cfg.TrendCacheTTL, summarizer, validate, logger)
	uploadService := service.NewUploadService(uploader, userRepo, cfg.MaxUploadMB, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	postHandler := handler.NewPostHandler(postService, trendService, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)
	uploadHandler := handler.NewUploadHandler(uploadService, logger)
	realtimeHandler := handler.NewRealtimeHandler(realtimeService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:     authHandler,
		PostHandler:     postHandler,
		ChatHandler:     chatHandler,
		UploadHandler:   uploadHandler,
		RealtimeHandler: realtimeHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(shutdownCtx, app)
}

func waitForShutdown(shutdownCtx context.Context, app *fiber.App) {
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
