package handlers

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/api/dto"
	"github.com/fixdesk/repair-service/internal/auth"
	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/repository"
	"github.com/fixdesk/repair-service/internal/storage"
	"github.com/fixdesk/repair-service/internal/workflow"
	apperrors "github.com/fixdesk/repair-service/pkg/util"
)

const maxAttachmentBytes = 10 << 20

// TicketsHandler exposes the staff-facing ticket endpoints.
type TicketsHandler struct {
	workflow      *workflow.Service
	notifications repository.NotificationLogRepository
	blobs         storage.BlobStore
	logger        *zap.Logger
}

// NewTicketsHandler builds the handler.
func NewTicketsHandler(wf *workflow.Service, notifications repository.NotificationLogRepository, blobs storage.BlobStore, logger *zap.Logger) *TicketsHandler {
	return &TicketsHandler{workflow: wf, notifications: notifications, blobs: blobs, logger: logger}
}

// List returns tickets matching query filters.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter := repository.TicketFilter{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	for _, status := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(status))
	}
	for _, urgency := range splitCSV(c.Query("urgency")) {
		filter.Urgencies = append(filter.Urgencies, domain.TicketUrgency(urgency))
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}

	tickets, err := h.workflow.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tickets": dto.FromTickets(tickets)})
}

// Get returns a full ticket detail by id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	detail, err := h.workflow.GetDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromDetail(detail))
}

// GetByCode returns a full ticket detail by its human-readable code.
func (h *TicketsHandler) GetByCode(c *fiber.Ctx) error {
	detail, err := h.workflow.GetDetailByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromDetail(detail))
}

// Update applies a staff patch: status, urgency, assignees, notes.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	var request dto.UpdateTicketRequest
	if err := c.BodyParser(&request); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.workflow.Update(c.UserContext(), c.Params("id"), request.ToPatch(), principal.Actor())
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

// Cancel closes a ticket with an optional reason.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	var request dto.CancelTicketRequest
	if err := c.BodyParser(&request); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.workflow.Cancel(c.UserContext(), c.Params("id"), request.Reason, principal.Actor())
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicket(ticket))
}

// Rush pushes a follow-up reminder to the ticket's current assignees.
func (h *TicketsHandler) Rush(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.workflow.Rush(c.UserContext(), c.Params("id"), principal.Actor()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "reminder_sent"})
}

// Purge hard-deletes a ticket and everything it owns. Admin only; the route
// carries the role guard.
func (h *TicketsHandler) Purge(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.workflow.Purge(c.UserContext(), c.Params("id"), principal.Actor()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddAttachment uploads completion or problem evidence onto a ticket.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	input, err := readAttachment(c, h.blobs)
	if err != nil {
		return err
	}
	attachment, err := h.workflow.AddAttachment(c.UserContext(), c.Params("id"), *input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         attachment.ID,
		"public_url": attachment.PublicURL,
	})
}

// ListNotifications returns the most recent outbound delivery records.
func (h *TicketsHandler) ListNotifications(c *fiber.Ctx) error {
	entries, err := h.notifications.ListRecent(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"notifications": entries})
}

// readAttachment extracts the multipart "file" part and stores its bytes.
func readAttachment(c *fiber.Ctx, blobs storage.BlobStore) (*workflow.AttachmentInput, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, apperrors.NewValidationError("multipart field 'file' required", nil)
	}
	if header.Size > maxAttachmentBytes {
		return nil, apperrors.NewValidationError("file too large", map[string]any{"max_bytes": maxAttachmentBytes})
	}
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	publicURL, storageKey, err := blobs.Save(c.UserContext(), "tickets", header.Filename, data)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &workflow.AttachmentInput{
		Kind:       domain.AttachmentKind(strings.ToUpper(c.FormValue("kind"))),
		FileName:   header.Filename,
		StorageKey: storageKey,
		PublicURL:  publicURL,
		MimeType:   header.Header.Get("Content-Type"),
		SizeBytes:  header.Size,
	}, nil
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
