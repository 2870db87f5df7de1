package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/controllers"
)

func surveyRoutes(api fiber.Router, h *controllers.Controllers) {
	surveys := api.Group("/surveys")
	surveys.Post("/", h.StartSurvey)
	surveys.Get("/active", h.GetActiveSurvey)
	surveys.Post("/active/close", h.CloseActiveSurvey)
	surveys.Get("/:id/stats", h.GetSurveyStats)
	surveys.Get("/:id/export", h.ExportSurvey)

	api.Get("/stats/trend", h.GetTrend)
}
