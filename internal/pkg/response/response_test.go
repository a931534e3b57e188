package response

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMessage(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{fiber.StatusOK, MessageOK},
		{fiber.StatusBadRequest, MessageBadRequest},
		{fiber.StatusUnprocessableEntity, MessageUnprocessableEntity},
		{fiber.StatusServiceUnavailable, MessageServiceUnavailable},
		{fiber.StatusBadGateway, MessageInternalServerError},
		{fiber.StatusTeapot, MessageError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultMessage(tt.status), tt.status)
	}
}

func TestWrite_Envelope(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", func(c fiber.Ctx) error {
		return Success(c, fiber.StatusOK, "", map[string]int{"total": 2})
	})
	app.Get("/cancelled", func(c fiber.Ctx) error {
		return Error(c, fiber.StatusServiceUnavailable, "", nil)
	})
	app.Get("/bogus", func(c fiber.Ctx) error {
		return Error(c, 42, "", nil)
	})

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{"/ok", http.StatusOK, MessageOK},
		{"/cancelled", http.StatusServiceUnavailable, MessageServiceUnavailable},
		{"/bogus", http.StatusInternalServerError, MessageInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var env Envelope
			require.NoError(t, json.Unmarshal(body, &env))
			assert.Equal(t, tt.status, env.Status)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}
