package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"tripchat/utils"
)

// Protected verifies the bearer token the external auth provider issued and
// places the caller's identity in the request locals. Identity is trusted
// once the signature checks out; there is no user table to cross-check
// against here.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid authorization format",
				})
			}
			token = tokenParts[1]
		} else {
			// Fall back to cookie (and query param for websocket clients
			// that cannot set headers).
			token = c.Cookies("access_token")
			if token == "" {
				token = c.Query("access_token")
			}
			if token == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Authorization required",
				})
			}
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("userID", claims.UserID)
		c.Locals("userName", claims.Name)

		return c.Next()
	}
}
