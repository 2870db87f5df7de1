package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/config"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/controllers"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/middleware"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/utils"
)

// NewApp builds the fiber app with middleware, swagger and every route.
func NewApp(h *controllers.Controllers, cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "youth-feedback-bot",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return utils.HandleError(c, fe.Code, fe.Message)
			}
			return utils.HandleServiceError(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
	}))

	app.Get("/swagger/*", swagger.HandlerDefault)

	InitRoutes(app, h, cfg)
	return app
}

// InitRoutes registers the public routes first; everything after the admin
// group requires an administrator token.
func InitRoutes(app *fiber.App, h *controllers.Controllers, cfg *config.Config) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("✅ API is running...")
	})
	authRoutes(app, h)
	webhookRoutes(app, h)

	api := app.Group("", middleware.AuthJWT([]byte(cfg.JWTSecret)), middleware.AdminOnly(cfg.AdminID))
	userRoutes(api, h)
	surveyRoutes(api, h)
}
