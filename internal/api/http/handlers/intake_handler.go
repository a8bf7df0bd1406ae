package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/api/dto"
	"github.com/fixdesk/repair-service/internal/storage"
	"github.com/fixdesk/repair-service/internal/workflow"
	apperrors "github.com/fixdesk/repair-service/pkg/util"
)

// IntakeHandler exposes the public endpoints the intake form posts to. No
// authentication: anyone can report a problem.
type IntakeHandler struct {
	workflow *workflow.Service
	blobs    storage.BlobStore
	logger   *zap.Logger
}

// NewIntakeHandler builds the handler.
func NewIntakeHandler(wf *workflow.Service, blobs storage.BlobStore, logger *zap.Logger) *IntakeHandler {
	return &IntakeHandler{workflow: wf, blobs: blobs, logger: logger}
}

// Create registers a new repair request. The response includes the ticket
// code and, for guests without a chat identity, the linking code the form
// shows so the reporter can subscribe to updates.
func (h *IntakeHandler) Create(c *fiber.Ctx) error {
	var request dto.CreateTicketRequest
	if err := c.BodyParser(&request); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.workflow.Create(c.UserContext(), request.ToInput())
	if err != nil {
		return err
	}
	h.logger.Info("repair request created",
		zap.String("ticket_code", ticket.TicketCode),
		zap.String("urgency", string(ticket.Urgency)))
	return c.Status(fiber.StatusCreated).JSON(dto.FromTicket(ticket))
}

// Status is the public progress view looked up by ticket code. Reporter
// contact details and internal notes stay server-side.
func (h *IntakeHandler) Status(c *fiber.Ctx) error {
	detail, err := h.workflow.GetDetailByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	ticket := detail.Ticket
	return c.JSON(fiber.Map{
		"ticket_code":               ticket.TicketCode,
		"status":                    ticket.Status,
		"urgency":                   ticket.Urgency,
		"title":                     ticket.Title,
		"estimated_completion_date": ticket.EstimatedCompletionDate,
		"completed_at":              ticket.CompletedAt,
		"message_to_reporter":       ticket.MessageToReporter,
		"updated_at":                ticket.UpdatedAt,
	})
}

// AddAttachment uploads problem evidence onto a freshly created ticket,
// addressed by ticket code since the intake form never sees internal ids.
func (h *IntakeHandler) AddAttachment(c *fiber.Ctx) error {
	detail, err := h.workflow.GetDetailByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	input, err := readAttachment(c, h.blobs)
	if err != nil {
		return err
	}
	attachment, err := h.workflow.AddAttachment(c.UserContext(), detail.Ticket.ID, *input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         attachment.ID,
		"public_url": attachment.PublicURL,
	})
}
