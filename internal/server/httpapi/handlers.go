package httpapi

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

func respondError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func respondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"data": data})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return fiber.StatusUnauthorized
	case errors.Is(err, common.ErrorUnauthorized):
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

func (s *HTTPServer) fail(c *fiber.Ctx, err error) error {
	st := httpStatus(err)
	if st == fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)
		return respondError(c, st, "internal error")
	}
	return respondError(c, st, err.Error())
}

func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return respondError(c, fe.Code, fe.Message)
	}
	return s.fail(c, err)
}

func (s *HTTPServer) health(c *fiber.Ctx) error {
	return respondData(c, fiber.StatusOK, fiber.Map{"status": "ok"})
}

func (s *HTTPServer) requireRelaySecret(c *fiber.Ctx) error {
	if s.secret == "" {
		return respondError(c, fiber.StatusNotFound, "webhook disabled")
	}
	got := c.Get(common.RelaySecretHeaderName)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
		return respondError(c, fiber.StatusUnauthorized, "invalid relay secret")
	}
	return c.Next()
}

func (s *HTTPServer) relayMedia(c *fiber.Ctx) error {
	var m models.InboundMedia
	if err := c.BodyParser(&m); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid body")
	}

	err := s.inbound.HandleInbound(c.UserContext(), m)
	if common.IsInformational(err) {
		return respondData(c, fiber.StatusOK, fiber.Map{"status": "ignored", "reason": err.Error()})
	}
	if err != nil {
		return s.fail(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"status": "resubmitted"})
}

func (s *HTTPServer) exchangeLoginLink(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return respondError(c, fiber.StatusBadRequest, "token is required")
	}

	access, u, err := s.logins.ExchangeLoginLink(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return respondError(c, fiber.StatusUnauthorized, "unknown user")
		}
		return s.fail(c, err)
	}

	return respondData(c, fiber.StatusOK, fiber.Map{
		"access_token":    access,
		"user_id":         u.ID,
		"role":            u.Role,
		"onboarding_step": u.OnboardingStep,
	})
}
