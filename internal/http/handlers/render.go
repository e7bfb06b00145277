package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/validate"
)

type pageMeta struct {
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"data": data})
}

func paged(c *fiber.Ctx, data any, page, size, total int) error {
	return c.JSON(fiber.Map{"data": data, "meta": pageMeta{Page: page, Size: size, Total: total}})
}

// ErrorHandler renders every error as {"error": {kind, message, details}}.
// Errors that are not domain errors never leak their text.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := domain.KindInternal
		switch fe.Code {
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			kind = domain.KindNotFound
		case fiber.StatusRequestEntityTooLarge, fiber.StatusBadRequest:
			kind = domain.KindValidationFailed
		}
		if kind == domain.KindInternal {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fe.Code).JSON(fiber.Map{"error": fiber.Map{"kind": kind, "message": "internal error"}})
		}
		return c.Status(fe.Code).JSON(fiber.Map{"error": fiber.Map{"kind": kind, "message": fe.Message}})
	}

	de, isDomain := domain.AsError(err)
	if !isDomain {
		applog.Error(c, "server.error", err, nil)
		de = domain.E(domain.KindInternal, "internal error")
	}
	switch de.Kind {
	case domain.KindUnauthenticated, domain.KindForbidden:
		applog.Security(c, "access.denied", map[string]any{"kind": de.Kind, "message": de.Message})
	case domain.KindInternal:
		if isDomain {
			applog.Error(c, "server.error", err, nil)
		}
	}
	body := fiber.Map{"kind": de.Kind, "message": de.Message}
	if len(de.Details) > 0 {
		body["details"] = de.Details
	}
	return c.Status(de.Kind.Status()).JSON(fiber.Map{"error": body})
}

// bind decodes a JSON body into a request DTO.
func bind(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return domain.Invalid("request body is required")
	}
	if err := c.BodyParser(dst); err != nil {
		return domain.Invalid("malformed JSON body")
	}
	return nil
}

func idParam(c *fiber.Ctx, name string) (int64, error) {
	id, valid := validate.ID(c.Params(name))
	if !valid {
		return 0, domain.Invalid("%s must be a positive integer", name).With("field", name)
	}
	return id, nil
}

// queryID reads an optional id filter; absent means zero.
func queryID(c *fiber.Ctx, name string) (int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	id, valid := validate.ID(raw)
	if !valid {
		return 0, domain.Invalid("%s must be a positive integer", name).With("field", name)
	}
	return id, nil
}

func pageOf(c *fiber.Ctx) (int, int) {
	size := c.Query("page_size")
	if size == "" {
		size = c.Query("size")
	}
	return validate.Page(c.Query("page"), size)
}
