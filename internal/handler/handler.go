package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"claim-comments/internal/middleware"
	"claim-comments/internal/service"
)

type Handlers struct {
	RPC    *RPCHandler
	Status *StatusHandler
	Admin  *AdminHandler
}

func NewHandlers(services *service.Services, version string, log *zap.Logger) *Handlers {
	status := NewStatusHandler(version)
	return &Handlers{
		RPC:    NewRPCHandler(services.Comment, status, log),
		Status: status,
		Admin:  NewAdminHandler(services.Backup),
	}
}

type AppConfig struct {
	CORSOrigins    string
	AdminJWTSecret string
	Services       *service.Services
}

// NewApp builds the fiber application with every route mounted.
func NewApp(h *Handlers, cfg AppConfig, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log.Named("http"), "/health", "/metrics"))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Accept-Language, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(middleware.AdminAuth(cfg.AdminJWTSecret))

	app.Get("/health", h.Status.Health)
	app.Get("/", h.Status.Get)
	app.Get("/api", h.Status.Get)
	app.Post("/api", h.RPC.Serve)

	if cfg.Services != nil && cfg.Services.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Services.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	admin := app.Group("/admin", middleware.RequireAdmin())
	admin.Post("/backup", h.Admin.Backup)

	return app
}
