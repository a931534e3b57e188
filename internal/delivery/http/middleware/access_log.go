package middleware

import (
	"time"

	"match-engine/internal/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

type AccessLogMiddleware struct {
	logger *zap.Logger
}

func NewAccessLogMiddleware(l *zap.Logger) *AccessLogMiddleware {
	if l == nil {
		l = zap.NewNop()
	}
	return &AccessLogMiddleware{logger: l}
}

func (m *AccessLogMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		rid := c.Get(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(HeaderRequestID, rid)
		c.SetContext(logger.ContextWithRequestID(c.Context(), rid))

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if status < fiber.StatusBadRequest {
				status, _, _ = normalizeError(err)
			}
		}

		logger.WithFields(m.logger, logger.StringFields(
			logger.StringField{Key: logger.FieldRequestID, Value: rid},
			logger.StringField{Key: "method", Value: c.Method()},
			logger.StringField{Key: "path", Value: c.OriginalURL()},
			logger.StringField{Key: "ip", Value: c.IP()},
			logger.StringField{Key: "user_agent", Value: c.Get(fiber.HeaderUserAgent)},
		)...).Info("http access",
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("req_bytes", c.Request().Header.ContentLength()),
			zap.Int("resp_bytes", len(c.Response().Body())),
		)

		return err
	}
}
