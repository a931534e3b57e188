package routes

import (
	"match-engine/internal/delivery/http/handler"
	"match-engine/internal/delivery/http/middleware"
	v1 "match-engine/internal/delivery/http/routes/v1"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health    *handler.HealthHandler
	match     *handler.MatchHandler
	analytics *handler.AnalyticsHandler
	auth      *middleware.AuthMiddleware
}

// NewRegistry wires the HTTP surface. A nil auth middleware leaves /api/v1 open.
func NewRegistry(health *handler.HealthHandler, match *handler.MatchHandler, analytics *handler.AnalyticsHandler, auth *middleware.AuthMiddleware) *Registry {
	return &Registry{health: health, match: match, analytics: analytics, auth: auth}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerHealth(app)
	r.registerAPI(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.health == nil {
		return
	}
	r.health.RegisterRoutes(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")

	var grp fiber.Router
	if r.auth != nil {
		grp = api.Group("/v1", r.auth.Middleware())
	} else {
		grp = api.Group("/v1")
	}
	v1.Register(grp, r.match, r.analytics)
}
