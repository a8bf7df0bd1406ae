package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/repository"
	apperrors "github.com/fixdesk/repair-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal is the authenticated staff identity attached to a request.
type Principal struct {
	StaffID     string
	DisplayName string
	Role        domain.StaffRole
}

// Actor converts the principal into a workflow actor.
func (p Principal) Actor() domain.Actor {
	return domain.Actor{ID: p.StaffID, DisplayName: p.DisplayName, Role: p.Role}
}

// Middleware verifies the bearer token and resolves the staff account. The
// account is re-read on every request so deactivation takes effect
// immediately, not at token expiry.
func Middleware(tokens *TokenManager, staff repository.StaffRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return apperrors.NewUnauthorized("missing bearer token")
		}
		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return apperrors.NewUnauthorized("invalid or expired token")
		}

		member, err := staff.GetByID(c.UserContext(), claims.StaffID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("account no longer exists")
			}
			return err
		}
		if !member.Active {
			return apperrors.NewUnauthorized("account deactivated")
		}

		c.Locals(principalKey, Principal{
			StaffID:     member.ID,
			DisplayName: member.DisplayName,
			Role:        member.Role,
		})
		return c.Next()
	}
}

// PrincipalFrom extracts the authenticated principal set by Middleware.
func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	principal, ok := c.Locals(principalKey).(Principal)
	return principal, ok
}
