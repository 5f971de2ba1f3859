package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gongmoju-info/gongmoju-backend/services"
)

// normalizePathParam unescapes a path parameter. Company names are Korean
// and arrive percent-encoded.
func normalizePathParam(param string) (string, error) {
	return url.PathUnescape(param)
}

type IPOHandler struct {
	Service *services.IPOService
}

func NewIPOHandler(service *services.IPOService) *IPOHandler {
	return &IPOHandler{Service: service}
}

func (h *IPOHandler) GetIPOs(c *fiber.Ctx) error {
	ipos, err := h.Service.GetIPOs(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    ipos,
	})
}

func (h *IPOHandler) GetIPOByName(c *fiber.Ctx) error {
	name, err := normalizePathParam(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid name parameter",
		})
	}

	ipo, err := h.Service.GetIPOByName(c.Context(), name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if ipo == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "IPO not found",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    ipo,
	})
}
