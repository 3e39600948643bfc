package authz

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"taskboard-backend/internal/api"
)

const localsKey = "auth"

// Middleware returns a Fiber middleware that runs the gateway once per
// request and stores the resulting AuthContext for downstream handlers.
// Denials all read the same to the client.
func Middleware(gw *Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return api.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return api.UnauthorizedError("Invalid auth header format")
		}

		decision, actx := gw.Check(c.Context(), parts[1])
		if !decision.Allow {
			return api.UnauthorizedError("Invalid or expired credentials")
		}

		c.Locals(localsKey, actx)
		return c.Next()
	}
}

// FromCtx extracts the AuthContext set by Middleware. The second return is
// false on routes that did not pass through the gateway.
func FromCtx(c *fiber.Ctx) (AuthContext, bool) {
	actx, ok := c.Locals(localsKey).(AuthContext)
	return actx, ok
}
