package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gongmoju-info/gongmoju-backend/services"
)

type SubscriberHandler struct {
	Service *services.SubscriberService
}

func NewSubscriberHandler(service *services.SubscriberService) *SubscriberHandler {
	return &SubscriberHandler{Service: service}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *SubscriberHandler) RequestVerification(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "email is required",
		})
	}

	if err := h.Service.RequestVerification(c.Context(), req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Verification code sent",
	})
}

func (h *SubscriberHandler) VerifyCode(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "email and code are required",
		})
	}

	if err := h.Service.VerifyCode(c.Context(), req.Email, req.Code); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Subscription verified",
	})
}

func (h *SubscriberHandler) Unsubscribe(c *fiber.Ctx) error {
	token := c.Query("token")
	if err := h.Service.Unsubscribe(c.Context(), token); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Unsubscribed",
	})
}
