package main

import (
	"context"
	"log"
	"time"

	"docsense/internal/models"
	"docsense/internal/repository"
	"docsense/pkg/auth"
	"docsense/pkg/config"
	"docsense/pkg/logger"
	"docsense/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	demoUserName     = "Test User"
	demoUserEmail    = "test@example.com"
	demoUserPassword = "password123"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		hashed_password VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		filename VARCHAR(255) NOT NULL,
		file_path VARCHAR(512) NOT NULL,
		file_type VARCHAR(16) NOT NULL,
		file_size BIGINT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id)`,
	`CREATE TABLE IF NOT EXISTS extracted_data (
		id UUID PRIMARY KEY,
		document_id UUID NOT NULL UNIQUE REFERENCES documents(id) ON DELETE CASCADE,
		data JSONB NOT NULL DEFAULT '{}',
		coordinates JSONB NOT NULL DEFAULT '{}',
		confidence_scores JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		message TEXT NOT NULL DEFAULT '',
		response TEXT NOT NULL DEFAULT '',
		sender VARCHAR(8) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_document_id ON chat_messages(document_id)`,
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Creating database schema...")
	if err := createSchema(ctx, db); err != nil {
		appLogger.Fatal("Failed to create schema", zap.Error(err))
	}

	appLogger.Info("Seeding demo user...")
	userRepo := repository.NewUserRepository(db, appLogger)
	if err := seedDemoUser(ctx, userRepo, appLogger); err != nil {
		appLogger.Fatal("Failed to seed demo user", zap.Error(err))
	}

	appLogger.Info("Database seeding completed successfully!")
}

func createSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// seedDemoUser creates the demo account if it does not exist yet.
func seedDemoUser(ctx context.Context, userRepo *repository.UserRepository, appLogger *zap.Logger) error {
	if existing, _ := userRepo.GetByEmail(ctx, demoUserEmail); existing != nil {
		appLogger.Info("Demo user already exists", zap.String("email", demoUserEmail))
		return nil
	}

	hashedPassword, err := auth.HashPassword(demoUserPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	user := &models.User{
		ID:             uuid.New(),
		Name:           demoUserName,
		Email:          demoUserEmail,
		HashedPassword: hashedPassword,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := userRepo.Create(ctx, user); err != nil {
		return err
	}

	appLogger.Info("Demo user created", zap.String("email", demoUserEmail))
	return nil
}
