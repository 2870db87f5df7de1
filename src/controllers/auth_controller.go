package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/utils"
)

const tokenTTL = 12 * time.Hour

type TokenRequest struct {
	APIKey string `json:"api_key" validate:"required,min=16"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueToken godoc
// @Summary      Exchange the admin API key for a JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      TokenRequest  true  "API key"
// @Success      200   {object}  TokenResponse
// @Failure      400   {object}  models.ErrorResponse
// @Failure      401   {object}  models.ErrorResponse
// @Failure      503   {object}  models.ErrorResponse
// @Router       /auth/token [post]
func (h *Controllers) IssueToken(c *fiber.Ctx) error {
	if !h.cfg.APIEnabled() {
		return utils.HandleError(c, fiber.StatusServiceUnavailable, "admin API is not configured")
	}

	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.HandleError(c, fiber.StatusBadRequest, "Invalid request format")
	}
	if err := h.validate.Struct(req); err != nil {
		return utils.HandleError(c, fiber.StatusBadRequest, "api_key is required")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminAPIKeyHash), []byte(req.APIKey)); err != nil {
		return utils.HandleError(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	now := h.now()
	token, err := utils.GenerateJWT([]byte(h.cfg.JWTSecret), h.cfg.AdminID, utils.RoleAdmin, tokenTTL, now)
	if err != nil {
		return utils.HandleError(c, fiber.StatusInternalServerError, "Token generation failed")
	}

	c.Set("X-Content-Type-Options", "nosniff")
	return c.JSON(TokenResponse{Token: token, ExpiresAt: now.Add(tokenTTL)})
}
