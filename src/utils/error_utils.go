// error_utils.go
package utils

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

func HandleError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(models.ErrorResponse{
		Status:  status,
		Message: message,
	})
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindValidation:
		return fiber.StatusBadRequest
	case models.KindStateConflict:
		return fiber.StatusConflict
	case models.KindNotFound:
		return fiber.StatusNotFound
	case models.KindNotAuthorized:
		return fiber.StatusForbidden
	case models.KindDelivery:
		return fiber.StatusBadGateway
	case models.KindPersistence:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// HandleServiceError writes err with the status of its kind. Internal
// details are not exposed.
func HandleServiceError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status >= fiber.StatusInternalServerError {
		msg = "internal error"
		if status == fiber.StatusServiceUnavailable {
			msg = "storage unavailable"
		}
	}
	return HandleError(c, status, msg)
}
