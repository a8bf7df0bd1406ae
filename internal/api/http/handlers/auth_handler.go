package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fixdesk/repair-service/internal/api/dto"
	"github.com/fixdesk/repair-service/internal/auth"
	"github.com/fixdesk/repair-service/internal/linkcenter"
	apperrors "github.com/fixdesk/repair-service/pkg/util"
)

// AuthHandler exposes staff session endpoints.
type AuthHandler struct {
	auth  *auth.Service
	links *linkcenter.Service
}

// NewAuthHandler builds the handler.
func NewAuthHandler(authService *auth.Service, linkService *linkcenter.Service) *AuthHandler {
	return &AuthHandler{auth: authService, links: linkService}
}

// Login exchanges staff credentials for an access token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var request dto.LoginRequest
	if err := c.BodyParser(&request); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if request.Email == "" || request.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	session, err := h.auth.Login(c.UserContext(), request.Email, request.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Staff:     dto.FromStaff(session.Staff),
	})
}

// Me returns the authenticated principal.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{
		"id":           principal.StaffID,
		"display_name": principal.DisplayName,
		"role":         principal.Role,
	})
}

// LinkCode issues a linking code the staff member messages to the bot to
// verify their chat channel. Until a code is redeemed over chat the account
// has no VERIFIED binding and receives no notifications.
func (h *AuthHandler) LinkCode(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	code, err := h.links.IssueAccountLinkCode(c.UserContext(), principal.StaffID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"linking_code": code})
}
