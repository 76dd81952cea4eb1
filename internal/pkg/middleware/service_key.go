package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/searchlens/searchlens/internal/pkg/env"
)

// ServiceKeyMiddleware authenticates internal feature services calling the
// connections API with the shared deployment key.
func ServiceKeyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := extractServiceKeyFromHeader(c)
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing service key"})
		}

		expected := env.GetEnv("SERVICE_API_KEY", "")
		if expected == "" {
			log.Print("service key middleware: SERVICE_API_KEY not configured")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Service key not configured"})
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid service key"})
		}

		return c.Next()
	}
}

func extractServiceKeyFromHeader(c *fiber.Ctx) string {
	if v := strings.TrimSpace(c.Get("X-Service-Key")); v != "" {
		return v
	}
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
