package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/controllers"
)

func userRoutes(api fiber.Router, h *controllers.Controllers) {
	users := api.Group("/users")
	users.Get("/", h.GetApprovedUsers)
	users.Get("/pending", h.GetPendingUsers)
	users.Post("/pending/:id/approve", h.ApproveUser)
	users.Post("/pending/:id/reject", h.RejectUser)
	users.Delete("/:id", h.RemoveUser)
}
