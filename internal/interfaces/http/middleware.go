package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Locals keys y cabeceras de contexto de la petición.
const (
	LocalUserID    = "user_id"
	LocalRequestID = "request_id"

	HeaderUserID    = "X-User-ID"
	HeaderRequestID = "X-Request-ID"

	defaultUserID = "system"
)

// RequestContext toma X-User-ID y X-Request-ID (genera uno si falta), los deja en c.Locals
// y registra cada petición al terminar.
func RequestContext(log *logger.Logger) fiber.Handler {
	log = log.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqID := c.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		userID := c.Get(HeaderUserID)
		if userID == "" {
			userID = defaultUserID
		}
		c.Locals(LocalRequestID, reqID)
		c.Locals(LocalUserID, userID)
		c.Set(HeaderRequestID, reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("request_id", reqID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("petición atendida")
		return err
	}
}

// GetUserID devuelve el usuario de la petición (después de RequestContext).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	if s == "" {
		return defaultUserID
	}
	return s
}
