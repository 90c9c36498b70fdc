package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck reports the status of every named dependency. A nil Pinger
// is reported as disabled.
func HealthCheck(deps map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		services := fiber.Map{}
		for name, p := range deps {
			switch {
			case p == nil:
				services[name] = "disabled"
			case p.HealthCheck(ctx) != nil:
				services[name] = "unreachable"
				status = fiber.StatusServiceUnavailable
			default:
				services[name] = "connected"
			}
		}

		label := "ok"
		if status != fiber.StatusOK {
			label = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":   label,
			"version":  "1.0.0",
			"services": services,
		})
	}
}
