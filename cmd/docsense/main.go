package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"docsense/internal/api"
	"docsense/internal/api/handlers"
	"docsense/internal/repository"
	"docsense/internal/service"
	"docsense/internal/task"
	"docsense/pkg/auth"
	"docsense/pkg/config"
	"docsense/pkg/logger"
	"docsense/pkg/postgres"

	"go.uber.org/zap"
)

// @title Document Data Extraction API
// @version 1.0
// @description Upload documents, extract structured data with an LLM and chat about the results.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting document extraction service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	docRepo := repository.NewDocumentRepository(db, appLogger)
	dataRepo := repository.NewExtractedDataRepository(db, appLogger)
	chatRepo := repository.NewChatRepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)

	llmService, err := service.NewLLMService(&cfg.GigaChat, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM service", zap.Error(err))
	}
	defer llmService.Close()

	extractionService := service.NewExtractionService(llmService, appLogger)

	pool := task.NewPool(cfg.Worker.PoolSize, cfg.Worker.QueueSize, cfg.Worker.ProcessTimeout, appLogger)
	defer pool.Stop()

	docService := service.NewDocumentService(docRepo, dataRepo, extractionService, pool, cfg.Upload.Dir, cfg.Upload.MaxSize, appLogger)
	chatService := service.NewChatService(llmService, chatRepo, dataRepo, docRepo, appLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	docHandler := handlers.NewDocumentHandler(docService, appLogger)
	chatHandler := handlers.NewChatHandler(chatService, appLogger)

	// Setup router
	app := api.SetupRouter(authHandler, docHandler, chatHandler, jwtManager, cfg, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
