package handler

import (
	"context"
	"sort"
	"time"

	"match-engine/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency reported on /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	app    string
	env    string
	checks map[string]Pinger
}

func NewHealthHandler(app, env string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{app: app, env: env, checks: checks}
}

type healthResponse struct {
	Status       string            `json:"status"`
	App          string            `json:"app,omitempty"`
	Environment  string            `json:"environment,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Health)
}

// Health always answers 200 while the process serves; failing dependencies mark it degraded.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := healthResponse{Status: "ok", App: h.app, Environment: h.env, Dependencies: map[string]string{}}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			out.Dependencies[name] = "down"
			out.Status = "degraded"
			continue
		}
		out.Dependencies[name] = "up"
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}
