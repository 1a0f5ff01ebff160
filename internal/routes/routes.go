package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DRrook/YallaFit/internal/config"
	"github.com/DRrook/YallaFit/internal/handlers"
	"github.com/DRrook/YallaFit/internal/middleware"
	"github.com/DRrook/YallaFit/internal/repository"
	"github.com/DRrook/YallaFit/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	sessionService := services.NewSessionService(db, sessionRepo, enrollmentRepo)
	enrollmentService := services.NewEnrollmentService(db, sessionRepo, enrollmentRepo)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	protected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	sessions := protected.Group("/sessions")
	sessions.Post("", sessionHandler.CreateSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id", sessionHandler.UpdateSession)
	sessions.Delete("/:id", sessionHandler.DeleteSession)
	sessions.Post("/:id/enroll", enrollmentHandler.Enroll)
	sessions.Get("/:id/enrollments", enrollmentHandler.ListSessionEnrollments)

	enrollments := protected.Group("/enrollments")
	enrollments.Get("", enrollmentHandler.ListMyEnrollments)
	enrollments.Put("/:id/status", enrollmentHandler.UpdateStatus)
	enrollments.Post("/:id/cancel", enrollmentHandler.Cancel)
}
