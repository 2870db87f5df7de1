package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/utils"
)

// GetPendingUsers godoc
// @Summary      List access requests
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.User
// @Failure      403  {object}  models.ErrorResponse
// @Router       /users/pending [get]
func (h *Controllers) GetPendingUsers(c *fiber.Ctx) error {
	users, err := h.access.ListPending(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(users)
}

// GetApprovedUsers godoc
// @Summary      List approved users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.User
// @Router       /users [get]
func (h *Controllers) GetApprovedUsers(c *fiber.Ctx) error {
	users, err := h.access.ListApproved(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(users)
}

// ApproveUser godoc
// @Summary      Approve an access request
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Telegram user id"
// @Success      200  {object}  models.User
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /users/pending/{id}/approve [post]
func (h *Controllers) ApproveUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	u, err := h.access.Approve(c.UserContext(), id)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(u)
}

// RejectUser godoc
// @Summary      Reject an access request
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  int  true  "Telegram user id"
// @Success      204
// @Failure      404  {object}  models.ErrorResponse
// @Router       /users/pending/{id}/reject [post]
func (h *Controllers) RejectUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	if err := h.access.Reject(c.UserContext(), id); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveUser godoc
// @Summary      Remove an approved user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  int  true  "Telegram user id"
// @Success      204
// @Failure      404  {object}  models.ErrorResponse
// @Router       /users/{id} [delete]
func (h *Controllers) RemoveUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	removed, err := h.access.Remove(c.UserContext(), id)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	if !removed {
		return utils.HandleError(c, fiber.StatusNotFound, "user is not approved")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
