package handlers

import (
	"errors"
	"time"

	sharedHTTP "github.com/distributed-ecommerce-saga/inventory-service/shared-domain/http"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

type AppConfig struct {
	AppName      string
	RateLimitMax int
	AccessLog    bool
}

// NewApp builds the fiber application with the middleware stack and every
// route mounted both at the root and under /api/v1.
func NewApp(cfg AppConfig, cart *CartHandler, inventory *InventoryHandler, log *zap.Logger) *fiber.App {
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	cartLimiter := newCartLimiter(cfg.RateLimitMax)
	setupRoutes(app, cart, inventory, cartLimiter)
	setupRoutes(app.Group("/api/v1"), cart, inventory, cartLimiter)

	app.Use("*", func(c *fiber.Ctx) error {
		return sharedHTTP.NotFoundResponse(c, "Route not found")
	})

	return app
}

func setupRoutes(router fiber.Router, cart *CartHandler, inventory *InventoryHandler, cartLimiter fiber.Handler) {
	router.Get("/health", inventory.HealthCheck)

	cartGroup := router.Group("/cart", cartLimiter)
	cartGroup.Post("/reserve", cart.Reserve)
	cartGroup.Post("/release", cart.Release)
	cartGroup.Delete("/clear", cart.ClearCart)
	cartGroup.Post("/clear", cart.ClearCart)
	cartGroup.Get("/reservations", cart.ListReservations)
	cartGroup.Get("/stock/realtime", cart.RealtimeStock)

	inventoryGroup := router.Group("/inventory")
	inventoryGroup.Get("/stock-levels", inventory.StockLevels)
	inventoryGroup.Put("/stock", inventory.UpsertStock)
	inventoryGroup.Get("/distribution-centers", inventory.ListCenters)
	inventoryGroup.Post("/distribution-centers", inventory.RegisterCenter)
	inventoryGroup.Get("/reservations/:id", inventory.GetReservation)
	inventoryGroup.Post("/reservations/:id/consume", inventory.ConsumeReservation)
}

func newCartLimiter(limit int) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return sharedHTTP.CartErrorResponse(c, fiber.StatusTooManyRequests, types.ErrorResponse{
				Error:   "RATE_LIMITED",
				Message: "Rate limit exceeded",
			})
		},
	})
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		}

		return sharedHTTP.ErrorResponse(c, code, "HTTP_ERROR", message, nil)
	}
}
