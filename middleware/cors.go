package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"libra/config"
)

const corsMaxAge = 3600

// CORS allows the configured browser origins to call the API with
// credentials. Origins come from config.AppConfig.AllowedOrigins.
func CORS() fiber.Handler {
	allowedOrigins := make(map[string]struct{})
	for _, origin := range config.AppConfig.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = struct{}{}
		}
	}

	allowedMethods := strings.Join([]string{
		fiber.MethodGet, fiber.MethodPost, fiber.MethodPut,
		fiber.MethodPatch, fiber.MethodDelete, fiber.MethodOptions,
	}, ",")
	allowedHeaders := "Origin,Content-Type,Accept,Authorization,X-Requested-With"

	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if _, ok := allowedOrigins[origin]; ok {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Credentials", "true")
		}

		// Handle OPTIONS method for preflight requests
		if c.Method() == fiber.MethodOptions {
			c.Set("Access-Control-Allow-Methods", allowedMethods)
			c.Set("Access-Control-Allow-Headers", allowedHeaders)
			c.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
