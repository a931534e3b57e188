package v1

import (
	"match-engine/internal/delivery/http/handler"

	"github.com/gofiber/fiber/v3"
)

func Register(r fiber.Router, match *handler.MatchHandler, analytics *handler.AnalyticsHandler) {
	if r == nil {
		return
	}

	if match != nil {
		match.RegisterRoutes(r)
	}
	if analytics != nil {
		analytics.RegisterRoutes(r)
	}
}
