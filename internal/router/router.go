package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/vastu-api/internal/config"
	"github.com/noah-isme/vastu-api/internal/handler"
	"github.com/noah-isme/vastu-api/internal/middleware"
	"github.com/noah-isme/vastu-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuestionnaireHandler      *handler.QuestionnaireHandler
	ContactHandler            *handler.ContactHandler
	StudentHandler            *handler.StudentHandler
	AuthHandler               *handler.AuthHandler
	AdminQuestionnaireHandler *handler.AdminQuestionnaireHandler
	AdminContactHandler       *handler.AdminContactHandler
	AdminStudentHandler       *handler.AdminStudentHandler
	AdminDashboardHandler     *handler.AdminDashboardHandler
	AdminActivityHandler      *handler.AdminActivityHandler
	NotificationHandler       *handler.NotificationHandler
	UploadHandler             *handler.UploadHandler
	HealthProbes              map[string]handler.Probe
	JWTMiddleware             fiber.Handler
	// DisableRateLimit drops the per-endpoint limiter on public POST routes.
	DisableRateLimit          bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	guards := func(scope string) []fiber.Handler {
		if deps.DisableRateLimit {
			return nil
		}
		return []fiber.Handler{middleware.RateLimit(scope, cfg.RateLimitMax, cfg.RateLimitWindow)}
	}

	if deps.QuestionnaireHandler != nil {
		deps.QuestionnaireHandler.Register(api.Group("/questionnaire"), guards("questionnaire")...)
	}
	if deps.ContactHandler != nil {
		deps.ContactHandler.Register(api.Group("/contact"), guards("contact")...)
	}
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(api.Group("/students"))
	}
	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), guards("login")...)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTWithConfig(middleware.JWTConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, QueryParam: "access_token"})
	}

	admin := app.Group("/api/admin", jwtMiddleware, middleware.RequireRole(middleware.AuthRoleAdmin))

	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterAdmin(admin)
	}
	if deps.AdminDashboardHandler != nil {
		deps.AdminDashboardHandler.Register(admin.Group("/dashboard"))
	}
	if deps.AdminContactHandler != nil {
		deps.AdminContactHandler.Register(admin.Group("/contacts"))
	}
	if deps.AdminQuestionnaireHandler != nil {
		deps.AdminQuestionnaireHandler.Register(admin.Group("/questionnaire/results"))
	}
	if deps.AdminStudentHandler != nil {
		deps.AdminStudentHandler.Register(admin.Group("/students"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(admin.Group("/notifications"))
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activity"))
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(admin.Group("/uploads"))
	}
}
