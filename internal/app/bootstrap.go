package app

import (
	"context"
	"fmt"
	"strings"

	"match-engine/internal/delivery/http/handler"
	"match-engine/internal/delivery/http/middleware"
	"match-engine/internal/delivery/http/routes"
	"match-engine/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{AppName: c.Config.App.AppName})

	registerGlobalMiddleware(f, c)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

// Bootstrap starts the feed hub and builds the HTTP app around an existing container.
// The returned cleanup closes every backend.
func Bootstrap(ctx context.Context, c *Container) (*App, func() error, error) {
	if c == nil {
		return nil, nil, fmt.Errorf("bootstrap: nil container")
	}
	go c.Hub.Run(ctx)
	return New(c), c.Close, nil
}

func registerGlobalMiddleware(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	app.Use(middleware.NewErrorMiddleware(c.Logger).Middleware())
	app.Use(middleware.NewAccessLogMiddleware(c.Logger).Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	checks := map[string]handler.Pinger{}
	if c.DB != nil {
		checks["database"] = c.DB
	}
	if c.Config.Redis.Enabled {
		checks["redis"] = c.Cache
	}

	var auth *middleware.AuthMiddleware
	if c.JWT != nil {
		auth = middleware.NewAuthMiddleware(c.JWT)
	}

	routes.NewRegistry(
		handler.NewHealthHandler(c.Config.App.AppName, c.Config.App.Environment, checks),
		handler.NewMatchHandler(c.Matching),
		handler.NewAnalyticsHandler(c.Matching),
		auth,
	).Register(app)

	ws.NewHandler(c.Hub, c.Logger).RegisterRoutes(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
