package api

import (
	"docsense/docs"
	"docsense/internal/api/handlers"
	"docsense/pkg/auth"
	"docsense/pkg/config"
	"docsense/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for the multipart framing and form
// fields around a maximum-size file part.
const multipartOverhead = 1 << 20

// uploadBodyLimit sizes the request body cap from the configured upload
// cap. Without this the framework's own default would reject large
// uploads before the handler's size check ever runs.
func uploadBodyLimit(maxUploadSize int64) int {
	if maxUploadSize <= 0 {
		return 4 * 1024 * 1024
	}
	return int(maxUploadSize) + multipartOverhead
}

func SetupRouter(
	authHandler *handlers.AuthHandler,
	documentHandler *handlers.DocumentHandler,
	chatHandler *handlers.ChatHandler,
	jwtManager *auth.JWTManager,
	cfg *config.Config,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    uploadBodyLimit(cfg.Upload.MaxSize),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Importing the docs package registers the swagger spec via init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Static("/uploads", cfg.Upload.Dir)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Document Data Extraction API",
			"version": "1.0.0",
			"docs":    "/swagger/index.html",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
		})
	})

	// Auth routes (public)
	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	protected := middleware.AuthMiddleware(jwtManager, appLogger)
	authGroup.Get("/profile", protected, authHandler.Profile)
	authGroup.Post("/logout", protected, authHandler.Logout)

	// Document routes
	documents := app.Group("/api/documents", protected)
	documents.Post("/upload", documentHandler.Upload)
	documents.Get("", documentHandler.List)
	documents.Get("/:id", documentHandler.Get)
	documents.Delete("/:id", documentHandler.Delete)
	documents.Get("/:id/extracted-data", documentHandler.GetExtractedData)
	documents.Put("/:id/extracted-data", documentHandler.UpdateExtractedData)
	documents.Get("/:id/export/:format", documentHandler.Export)

	// Chat routes
	chat := app.Group("/api/chat", protected)
	chat.Post("/message", chatHandler.SendMessage)
	chat.Get("/history/:document_id", chatHandler.History)
	chat.Delete("/history/:document_id", chatHandler.ClearHistory)

	return app
}
