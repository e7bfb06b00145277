package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/services"
)

const principalKey = "principal"

// Authenticate resolves the bearer token (and X-Device-Serial for terminals)
// into a principal stored in Locals. Requests without valid credentials stop here.
func Authenticate(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(h, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return domain.Unauthenticated("missing bearer token")
		}
		p, err := auth.Resolve(c.UserContext(), token, c.Get("X-Device-Serial"), c.IP())
		if err != nil {
			return err
		}
		c.Locals(principalKey, p)
		return c.Next()
	}
}

// Require admits only the listed principal kinds.
func Require(kinds ...domain.PrincipalKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := principal(c)
		for _, k := range kinds {
			if p != nil && p.Kind == k {
				return c.Next()
			}
		}
		return domain.Forbidden("this endpoint is not available to your account")
	}
}

func principal(c *fiber.Ctx) *domain.Principal {
	p, _ := c.Locals(principalKey).(*domain.Principal)
	return p
}

// Deadline bounds the request's context; services see it through c.UserContext().
func Deadline(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// LimitReached is shared by the rate limiters.
func LimitReached(c *fiber.Ctx) error {
	applog.Security(c, "rate.limit.hit", nil)
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fiber.Map{"kind": "RATE_LIMITED", "message": "too many requests, retry soon"},
	})
}
