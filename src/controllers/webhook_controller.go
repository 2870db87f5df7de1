package controllers

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/telegram"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/utils"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramWebhook receives updates pushed by Telegram.
func (h *Controllers) TelegramWebhook(c *fiber.Ctx) error {
	if h.bot == nil {
		return utils.HandleError(c, fiber.StatusNotFound, "webhook is disabled")
	}
	got := c.Get(secretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.cfg.WebhookSecret)) != 1 {
		return utils.HandleError(c, fiber.StatusUnauthorized, "bad webhook secret")
	}

	var u telegram.Update
	if err := json.Unmarshal(c.Body(), &u); err != nil {
		return utils.HandleError(c, fiber.StatusBadRequest, "invalid update")
	}
	h.bot.HandleUpdate(c.UserContext(), u)
	return c.SendStatus(fiber.StatusOK)
}
