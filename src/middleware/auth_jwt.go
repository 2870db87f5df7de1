package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/utils"
)

// AuthJWT checks the bearer token and stores its claims in Locals.
func AuthJWT(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(secret) == 0 {
			return utils.HandleError(c, fiber.StatusServiceUnavailable, "admin API is not configured")
		}
		authHeader := c.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return utils.HandleError(c, fiber.StatusUnauthorized, "Missing or invalid Authorization header")
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return utils.HandleError(c, fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals("userId", claims.UserID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// AdminOnly lets through only the configured administrator. It must run
// after AuthJWT.
func AdminOnly(adminID int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userId").(int64)
		role, _ := c.Locals("role").(string)
		if userID == 0 || userID != adminID || role != utils.RoleAdmin {
			return utils.HandleError(c, fiber.StatusForbidden, "administrator only")
		}
		return c.Next()
	}
}
