package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/auth"
	"github.com/noah-isme/studyrooms-api/internal/config"
	"github.com/noah-isme/studyrooms-api/internal/database"
	"github.com/noah-isme/studyrooms-api/internal/handler"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/repository"
	"github.com/noah-isme/studyrooms-api/internal/router"
	"github.com/noah-isme/studyrooms-api/internal/service"
	"github.com/noah-isme/studyrooms-api/internal/utils"
	cloud "github.com/noah-isme/studyrooms-api/pkg/cloudinary"
	"github.com/noah-isme/studyrooms-api/pkg/diskstore"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "studyrooms-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(rootCtx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	storage, staticDir := attachmentStorage(cfg, logger)

	validate := utils.NewValidator()
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	content := service.ContentRepositories{
		Rooms:     roomRepo,
		Users:     userRepo,
		Posts:     repository.NewPostRepository(db),
		Doubts:    repository.NewDoubtRepository(db),
		Comments:  repository.NewCommentRepository(db),
		Reactions: repository.NewReactionRepository(db),
	}

	authService := service.NewAuthService(userRepo, hasher, tokens, validate, logger)
	roomService := service.NewRoomService(roomRepo, userRepo, validate, logger)
	realtimeService := service.NewRealtimeService(roomService, redisClient, natsConn, cfg.RealtimeChannel, logger)
	postService := service.NewPostService(content, realtimeService, validate, logger)
	doubtService := service.NewDoubtService(content, realtimeService, validate, logger)
	commentService := service.NewCommentService(content, realtimeService, validate, logger)
	uploadService := service.NewUploadService(storage, repository.NewUploadRepository(db), cfg.UploadMaxMB, logger)

	realtimeService.Start(rootCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB*service.MaxFilesPerUpload + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:        &logger,
		AllowOrigins:  cfg.CORSOrigins,
		AccessLogging: cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authService, logger),
		RoomHandler:     handler.NewRoomHandler(roomService, logger),
		PostHandler:     handler.NewPostHandler(postService, logger),
		DoubtHandler:    handler.NewDoubtHandler(doubtService, logger),
		CommentHandler:  handler.NewCommentHandler(commentService, logger),
		UploadHandler:   handler.NewUploadHandler(uploadService, logger),
		RealtimeHandler: handler.NewRealtimeHandler(realtimeService, tokens, authService, logger),
		JWTMiddleware:   middleware.JWTProtected(tokens),
		StaticUploadDir: staticDir,
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(rootCtx, app, logger)
}

// attachmentStorage prefers Cloudinary and falls back to local disk served under /uploads.
func attachmentStorage(cfg config.Config, logger zerolog.Logger) (service.FileStorage, string) {
	if cfg.CloudinaryEnabled() {
		store, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		return store, ""
	}

	store, err := diskstore.New(cfg.UploadDir, cfg.PublicBaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}
	return store, store.Dir()
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
