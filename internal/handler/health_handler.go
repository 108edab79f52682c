package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/saegim/proofdesk/internal/queue"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck is one named dependency the readiness endpoint verifies.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// PostgresCheck pings the order store.
func PostgresCheck(sqlDB *sql.DB) ReadinessCheck {
	return ReadinessCheck{
		Name:  "postgres",
		Check: sqlDB.PingContext,
	}
}

// RedisCheck pings the rate-limit store.
func RedisCheck(rdb *redis.Client) ReadinessCheck {
	return ReadinessCheck{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
}

// BrokerCheck verifies the dispatch queue connection. An api pod without the
// broker accepts orders it can never dispatch, so the broker gates readiness
// like the stores do.
func BrokerCheck(broker *queue.RabbitMQ) ReadinessCheck {
	return ReadinessCheck{
		Name:  "rabbitmq",
		Check: broker.Ping,
	}
}

func RegisterHealthRoutes(app fiber.Router, checks ...ReadinessCheck) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(checks...))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

// ReadyzHandler runs every check against a shared deadline and reports
// per-dependency results. Any failure flips the endpoint to 503.
func ReadyzHandler(checks ...ReadinessCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		results := fiber.Map{}
		ready := true
		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				results[check.Name] = "down"
				ready = false
				continue
			}
			results[check.Name] = "ok"
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if !ready {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": results,
		})
	}
}
