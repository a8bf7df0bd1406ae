package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/events"
	"github.com/fixdesk/repair-service/internal/linkcenter"
	"github.com/fixdesk/repair-service/internal/repository"
	apperrors "github.com/fixdesk/repair-service/pkg/util"
)

// Service orchestrates repair ticket create/update/cancel operations.
type Service struct {
	tickets     repository.TicketRepository
	assignees   repository.AssigneeRepository
	attachments repository.AttachmentRepository
	staff       repository.StaffRepository
	codes       *CodeGenerator
	ledger      *Ledger
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// Dependencies bundles collaborators for the workflow service.
type Dependencies struct {
	TicketRepo     repository.TicketRepository
	AssigneeRepo   repository.AssigneeRepository
	AttachmentRepo repository.AttachmentRepository
	StaffRepo      repository.StaffRepository
	Codes          *CodeGenerator
	Ledger         *Ledger
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewService constructs the workflow service.
func NewService(deps Dependencies) *Service {
	return &Service{
		tickets:     deps.TicketRepo,
		assignees:   deps.AssigneeRepo,
		attachments: deps.AttachmentRepo,
		staff:       deps.StaffRepo,
		codes:       deps.Codes,
		ledger:      deps.Ledger,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// AttachmentInput carries already-uploaded attachment metadata.
type AttachmentInput struct {
	Kind       domain.AttachmentKind
	FileName   string
	StorageKey string
	PublicURL  string
	MimeType   string
	SizeBytes  int64
}

// CreateInput describes a new repair request from intake.
type CreateInput struct {
	ReporterName       string
	ReporterDepartment *string
	ReporterPhone      *string
	ReporterUserID     *string
	DirectChannelID    *string
	Category           string
	Title              string
	Description        string
	Location           string
	Urgency            domain.TicketUrgency
	ScheduledAt        *time.Time
	Attachments        []AttachmentInput
}

// Patch describes a staff-side ticket update. Nil fields are left untouched.
type Patch struct {
	Status                  *domain.TicketStatus
	Urgency                 *domain.TicketUrgency
	AssigneeIDs             *[]string
	Notes                   *string
	MessageToReporter       *string
	ScheduledAt             *time.Time
	EstimatedCompletionDate *time.Time
	StatusNote              string
}

// Create generates a code, persists the ticket with its attachments and then
// fires the staff multicast and reporter acknowledgement. Notification
// failures never fail the create.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.RepairTicket, error) {
	if strings.TrimSpace(input.ReporterName) == "" ||
		strings.TrimSpace(input.Category) == "" ||
		strings.TrimSpace(input.Title) == "" ||
		strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("reporter_name, category, title, description required", nil)
	}

	urgency := input.Urgency
	if urgency == "" {
		urgency = domain.UrgencyNormal
	}
	switch urgency {
	case domain.UrgencyNormal, domain.UrgencyUrgent, domain.UrgencyCritical:
	default:
		return nil, apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": urgency})
	}

	code, err := s.codes.Next(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.RepairTicket{
		TicketCode:         code,
		Status:             domain.TicketStatusPending,
		Urgency:            urgency,
		ReporterName:       strings.TrimSpace(input.ReporterName),
		ReporterDepartment: input.ReporterDepartment,
		ReporterPhone:      input.ReporterPhone,
		ReporterUserID:     input.ReporterUserID,
		DirectChannelID:    input.DirectChannelID,
		Category:           strings.TrimSpace(input.Category),
		Title:              strings.TrimSpace(input.Title),
		Description:        strings.TrimSpace(input.Description),
		Location:           strings.TrimSpace(input.Location),
		ScheduledAt:        input.ScheduledAt,
	}

	// Guests without a chat identity get a linking code so they can bind
	// this ticket to a channel later by messaging it to the bot.
	if input.DirectChannelID == nil && input.ReporterUserID == nil {
		linkingCode := linkcenter.NewLinkingCode(time.Now())
		ticket.LinkingCode = &linkingCode
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, att := range input.Attachments {
		record := &domain.Attachment{
			TicketID:   ticket.ID,
			Kind:       att.Kind,
			FileName:   att.FileName,
			StorageKey: att.StorageKey,
			PublicURL:  att.PublicURL,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		}
		if record.Kind == "" {
			record.Kind = domain.AttachmentProblem
		}
		if err := s.attachments.Create(ctx, record); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publish(ctx, events.Event{
		Type:   events.EventTicketCreated,
		Actor:  domain.SystemActor,
		Ticket: ticket,
	})
	return ticket, nil
}

// Update validates any status transition, atomically replaces the assignee
// set, appends ledger entries and fires notifications. An illegal transition
// fails the whole update with nothing applied.
func (s *Service) Update(ctx context.Context, ticketID string, patch Patch, actor domain.Actor) (*domain.RepairTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	oldStatus := ticket.Status
	statusChanged := false
	if patch.Status != nil {
		if !ValidTransition(oldStatus, *patch.Status) {
			return nil, apperrors.NewInvalidTransition(string(oldStatus), string(*patch.Status))
		}
		statusChanged = *patch.Status != oldStatus
	}

	var prevAssignees, addedAssignees []string
	if patch.AssigneeIDs != nil {
		for _, staffID := range *patch.AssigneeIDs {
			member, err := s.staff.GetByID(ctx, staffID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, apperrors.NewValidationError("assignee does not exist", map[string]any{"staff_id": staffID})
				}
				return nil, apperrors.MapError(err)
			}
			if !member.Active {
				return nil, apperrors.NewValidationError("assignee inactive", map[string]any{"staff_id": staffID})
			}
		}
		prevAssignees, err = s.assignees.ListStaffIDs(ctx, ticketID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		prevSet := toSet(prevAssignees)
		for _, staffID := range *patch.AssigneeIDs {
			if _, existed := prevSet[staffID]; !existed {
				addedAssignees = append(addedAssignees, staffID)
			}
		}
	}

	noteChanged := patch.Notes != nil && (ticket.Notes == nil || *ticket.Notes != *patch.Notes)
	messageChanged := patch.MessageToReporter != nil &&
		(ticket.MessageToReporter == nil || *ticket.MessageToReporter != *patch.MessageToReporter)

	applyPatch(ticket, patch)

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if patch.AssigneeIDs != nil {
		if err := s.assignees.Replace(ctx, ticketID, *patch.AssigneeIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	// Audit trail, best-effort after the commit.
	if patch.AssigneeIDs != nil {
		s.ledger.RecordAssignmentDelta(ctx, ticketID, prevAssignees, *patch.AssigneeIDs, actor)
	}
	if statusChanged {
		s.ledger.RecordStatusChange(ctx, ticketID, oldStatus, ticket.Status, actor, patch.StatusNote)
	}
	if noteChanged {
		s.ledger.RecordNote(ctx, ticketID, actor, *patch.Notes)
	}
	if messageChanged {
		s.ledger.RecordMessageToReporter(ctx, ticketID, actor, *patch.MessageToReporter)
	}

	if len(addedAssignees) > 0 {
		s.publish(ctx, events.Event{
			Type:    events.EventTicketAssigned,
			Actor:   actor,
			Ticket:  ticket,
			Payload: events.TicketAssignedPayload{AddedStaffIDs: addedAssignees},
		})
	}
	if statusChanged {
		currentAssignees, err := s.assignees.ListStaffIDs(ctx, ticketID)
		if err != nil {
			s.logger.Warn("list assignees for status notification", zap.Error(err))
		}
		s.publish(ctx, events.Event{
			Type:   events.EventTicketStatusChanged,
			Actor:  actor,
			Ticket: ticket,
			Payload: events.StatusChangedPayload{
				OldStatus:        oldStatus,
				NewStatus:        ticket.Status,
				Note:             patch.StatusNote,
				AssigneeStaffIDs: currentAssignees,
			},
		})
	}
	return ticket, nil
}

// Cancel transitions a ticket to CANCELLED through the normal update path,
// so the same validation, ledger and reporter-notification rules apply.
func (s *Service) Cancel(ctx context.Context, ticketID string, reason string, actor domain.Actor) (*domain.RepairTicket, error) {
	status := domain.TicketStatusCancelled
	return s.Update(ctx, ticketID, Patch{Status: &status, StatusNote: reason}, actor)
}

// Rush sends a reminder to the current assignees of an urgent ticket.
func (s *Service) Rush(ctx context.Context, ticketID string, actor domain.Actor) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if ticket.Status.IsTerminal() {
		return apperrors.NewValidationError("ticket already closed", map[string]any{"status": ticket.Status})
	}
	assigneeIDs, err := s.assignees.ListStaffIDs(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if len(assigneeIDs) == 0 {
		return apperrors.NewConflict("ticket has no assignees to remind", nil)
	}
	s.publish(ctx, events.Event{
		Type:    events.EventTicketRush,
		Actor:   actor,
		Ticket:  ticket,
		Payload: events.RushPayload{AssigneeStaffIDs: assigneeIDs},
	})
	return nil
}

// Purge hard-deletes a ticket and everything it owns. Administrative only;
// the transport layer enforces the role.
func (s *Service) Purge(ctx context.Context, ticketID string, actor domain.Actor) error {
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	s.logger.Info("ticket purged",
		zap.String("ticket_id", ticketID),
		zap.String("actor", actor.DisplayName))
	return nil
}

// Detail is a read model combining a ticket with its owned records.
type Detail struct {
	Ticket      *domain.RepairTicket
	AssigneeIDs []string
	History     []domain.AssignmentHistoryEntry
	Attachments []domain.Attachment
}

// GetDetail loads a ticket with assignees, history and attachments.
func (s *Service) GetDetail(ctx context.Context, ticketID string) (*Detail, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.detailFor(ctx, ticket)
}

// GetDetailByCode loads a ticket by its human-readable code.
func (s *Service) GetDetailByCode(ctx context.Context, code string) (*Detail, error) {
	ticket, err := s.tickets.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_code": code})
		}
		return nil, apperrors.MapError(err)
	}
	return s.detailFor(ctx, ticket)
}

func (s *Service) detailFor(ctx context.Context, ticket *domain.RepairTicket) (*Detail, error) {
	assigneeIDs, err := s.assignees.ListStaffIDs(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	history, err := s.ledger.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &Detail{
		Ticket:      ticket,
		AssigneeIDs: assigneeIDs,
		History:     history,
		Attachments: attachments,
	}, nil
}

// List returns tickets matching a staff filter.
func (s *Service) List(ctx context.Context, filter repository.TicketFilter) ([]domain.RepairTicket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AddAttachment records completion or problem evidence on an existing ticket.
func (s *Service) AddAttachment(ctx context.Context, ticketID string, input AttachmentInput) (*domain.Attachment, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	record := &domain.Attachment{
		TicketID:   ticketID,
		Kind:       input.Kind,
		FileName:   input.FileName,
		StorageKey: input.StorageKey,
		PublicURL:  input.PublicURL,
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
	}
	if record.Kind == "" {
		record.Kind = domain.AttachmentProblem
	}
	if err := s.attachments.Create(ctx, record); err != nil {
		return nil, apperrors.MapError(err)
	}
	return record, nil
}

func applyPatch(ticket *domain.RepairTicket, patch Patch) {
	now := time.Now()
	if patch.Status != nil && *patch.Status != ticket.Status {
		ticket.Status = *patch.Status
		switch ticket.Status {
		case domain.TicketStatusCompleted:
			ticket.CompletedAt = &now
		case domain.TicketStatusCancelled:
			ticket.CancelledAt = &now
		}
	}
	if patch.Urgency != nil {
		ticket.Urgency = *patch.Urgency
	}
	if patch.Notes != nil {
		ticket.Notes = patch.Notes
	}
	if patch.MessageToReporter != nil {
		ticket.MessageToReporter = patch.MessageToReporter
	}
	if patch.ScheduledAt != nil {
		ticket.ScheduledAt = patch.ScheduledAt
	}
	if patch.EstimatedCompletionDate != nil {
		ticket.EstimatedCompletionDate = patch.EstimatedCompletionDate
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
