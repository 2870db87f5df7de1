package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/controllers"
)

func authRoutes(app *fiber.App, h *controllers.Controllers) {
	auth := app.Group("/auth")

	auth.Post("/token", h.IssueToken) // 🔐 API key -> JWT
}

func webhookRoutes(app *fiber.App, h *controllers.Controllers) {
	app.Post("/telegram/webhook", h.TelegramWebhook)
}
