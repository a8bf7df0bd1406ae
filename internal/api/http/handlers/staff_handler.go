package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fixdesk/repair-service/internal/api/dto"
	"github.com/fixdesk/repair-service/internal/repository"
)

// StaffHandler exposes the staff directory used when picking assignees.
type StaffHandler struct {
	staff repository.StaffRepository
}

// NewStaffHandler builds the handler.
func NewStaffHandler(staff repository.StaffRepository) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// List returns every active staff member.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	members, err := h.staff.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	result := make([]dto.StaffResponse, 0, len(members))
	for i := range members {
		result = append(result, dto.FromStaff(&members[i]))
	}
	return c.JSON(fiber.Map{"staff": result})
}
