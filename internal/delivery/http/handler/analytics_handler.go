package handler

import (
	"strconv"

	"match-engine/internal/analytics"
	"match-engine/internal/delivery/http/dto"
	"match-engine/internal/delivery/http/middleware"
	"match-engine/internal/pkg/response"
	"match-engine/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type AnalyticsHandler struct {
	uc usecase.MatchingUsecase
}

func NewAnalyticsHandler(uc usecase.MatchingUsecase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

func (h *AnalyticsHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/analytics/summary", h.Summary)
	r.Get("/strategies/health", h.StrategyHealth)
}

func (h *AnalyticsHandler) Summary(c fiber.Ctx) error {
	days, err := parseQueryIntStrict(c, "days", analytics.DefaultSummaryDays)
	if err != nil || days < 1 || days > analytics.MaxSummaryDays {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid days", map[string]string{
			"days": "must be an integer between 1 and " + strconv.Itoa(analytics.MaxSummaryDays),
		}, err)
	}

	sum, err := h.uc.Summary(c.Context(), days)
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "Internal server error", nil, err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewSummaryResponse(sum))
}

func (h *AnalyticsHandler) StrategyHealth(c fiber.Ctx) error {
	hs, err := h.uc.StrategyHealth(c.Context())
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "Internal server error", nil, err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewStrategyHealthResponse(hs))
}

func parseQueryIntStrict(c fiber.Ctx, key string, defaultVal int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return v, nil
}
