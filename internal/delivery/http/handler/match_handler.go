package handler

import (
	"context"
	"errors"

	"match-engine/internal/delivery/http/dto"
	"match-engine/internal/delivery/http/middleware"
	"match-engine/internal/guard"
	"match-engine/internal/pkg/response"
	"match-engine/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type MatchHandler struct {
	uc usecase.MatchingUsecase
}

func NewMatchHandler(uc usecase.MatchingUsecase) *MatchHandler {
	return &MatchHandler{uc: uc}
}

func (h *MatchHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	grp := r.Group("/match")
	grp.Post("", h.Match)
	grp.Post("/reverse", h.ReverseMatch)
}

func (h *MatchHandler) Match(c fiber.Ctx) error {
	var req usecase.MatchRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid request body", nil, err)
	}

	res, err := h.uc.Match(c.Context(), req)
	if err != nil {
		return mapMatchingUsecaseError(err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchListResponse(res))
}

func (h *MatchHandler) ReverseMatch(c fiber.Ctx) error {
	var req usecase.ReverseMatchRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid request body", nil, err)
	}

	res, err := h.uc.ReverseMatch(c.Context(), req)
	if err != nil {
		return mapMatchingUsecaseError(err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchListResponse(res))
}

func mapMatchingUsecaseError(err error) error {
	if err == nil {
		return nil
	}

	var verr *usecase.ValidationError
	switch {
	case errors.As(err, &verr):
		return middleware.NewAppError(fiber.StatusBadRequest, "Validation failed", verr.Fields, err)
	case errors.Is(err, usecase.ErrValidation):
		return middleware.NewAppError(fiber.StatusBadRequest, "Validation failed", nil, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, guard.ErrChainExhausted):
		return middleware.NewAppError(fiber.StatusInternalServerError, "Matching unavailable", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, "Internal server error", nil, err)
	}
}
