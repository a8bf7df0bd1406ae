package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fixdesk/repair-service/internal/api/http/handlers"
	"github.com/fixdesk/repair-service/internal/auth"
	"github.com/fixdesk/repair-service/internal/config"
	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/observability"
	"github.com/fixdesk/repair-service/internal/repository"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Config    *config.Config
	Metrics   *observability.Metrics
	Tokens    *auth.TokenManager
	StaffRepo repository.StaffRepository

	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Webhook *handlers.WebhookHandler
	Intake  *handlers.IntakeHandler
	Tickets *handlers.TicketsHandler
	Staff   *handlers.StaffHandler
}

// RegisterRoutes wires middleware and endpoints onto the app.
func RegisterRoutes(app *fiber.App, deps RouterDeps) {
	app.Get("/health/live", deps.Health.Live)
	app.Get("/health/ready", deps.Health.Ready)

	// Uploaded attachment files are served straight from disk.
	app.Static("/uploads", deps.Config.Storage.BaseDir)

	// The webhook authenticates by HMAC signature, not bearer token.
	app.Post("/webhook/line", deps.Webhook.Handle)

	api := app.Group("/api/v1")

	api.Post("/auth/login", deps.Auth.Login)

	intake := api.Group("/intake")
	intake.Post("/tickets", deps.Intake.Create)
	intake.Get("/tickets/:code/status", deps.Intake.Status)
	intake.Post("/tickets/:code/attachments", deps.Intake.AddAttachment)

	staff := api.Group("/", auth.Middleware(deps.Tokens, deps.StaffRepo))
	staff.Get("/auth/me", deps.Auth.Me)
	staff.Post("/auth/link-code", deps.Auth.LinkCode)
	staff.Get("/staff", deps.Staff.List)

	staff.Get("/tickets", deps.Tickets.List)
	staff.Get("/tickets/code/:code", deps.Tickets.GetByCode)
	staff.Get("/tickets/:id", deps.Tickets.Get)
	staff.Patch("/tickets/:id", deps.Tickets.Update)
	staff.Post("/tickets/:id/cancel", deps.Tickets.Cancel)
	staff.Post("/tickets/:id/rush", deps.Tickets.Rush)
	staff.Post("/tickets/:id/attachments", deps.Tickets.AddAttachment)

	admin := staff.Group("/", auth.RequireRole(domain.StaffRoleAdmin))
	admin.Delete("/tickets/:id", deps.Tickets.Purge)
	admin.Get("/notifications", deps.Tickets.ListNotifications)
}
