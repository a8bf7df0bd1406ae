package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/events"
)

// Service translates workflow events into outbound chat notifications. It is
// registered on the event dispatcher at startup; handler errors surface to
// the dispatcher, which logs them without failing the publishing mutation.
type Service struct {
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewService builds the notification event service.
func NewService(dispatcher *Dispatcher, logger *zap.Logger) *Service {
	return &Service{dispatcher: dispatcher, logger: logger}
}

// Register subscribes the service's handlers on the event bus.
func (s *Service) Register(bus events.Dispatcher) {
	bus.Subscribe(events.EventTicketCreated, s.handleTicketCreated)
	bus.Subscribe(events.EventTicketAssigned, s.handleTicketAssigned)
	bus.Subscribe(events.EventTicketStatusChanged, s.handleStatusChanged)
	bus.Subscribe(events.EventTicketRush, s.handleRush)
}

func (s *Service) handleTicketCreated(ctx context.Context, event events.Event) error {
	ticket := event.Ticket
	if ticket == nil {
		return fmt.Errorf("ticket_created event %s without ticket snapshot", event.ID)
	}
	var firstErr error
	if err := s.dispatcher.NotifyStaffOnNewTicket(ctx, ticket); err != nil {
		firstErr = err
	}
	// Acknowledgement to the reporter that the request was received.
	if err := s.dispatcher.NotifyReporter(ctx, ticket, domain.NotifyTicketCreated); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (s *Service) handleTicketAssigned(ctx context.Context, event events.Event) error {
	ticket := event.Ticket
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if ticket == nil || !ok {
		return fmt.Errorf("malformed ticket_assigned event %s", event.ID)
	}
	rendered := AssignmentToTechnician(ticket)
	var firstErr error
	for _, staffID := range payload.AddedStaffIDs {
		if _, err := s.dispatcher.NotifyTechnician(ctx, staffID, domain.NotifyAssignment, rendered); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) handleStatusChanged(ctx context.Context, event events.Event) error {
	ticket := event.Ticket
	payload, ok := event.Payload.(events.StatusChangedPayload)
	if ticket == nil || !ok {
		return fmt.Errorf("malformed ticket_status_changed event %s", event.ID)
	}

	var firstErr error
	if err := s.dispatcher.NotifyReporter(ctx, ticket, domain.NotifyStatusUpdate); err != nil {
		firstErr = err
	}

	switch payload.NewStatus {
	case domain.TicketStatusCompleted:
		rendered := CompletionToTechnician(ticket)
		for _, staffID := range payload.AssigneeStaffIDs {
			if _, err := s.dispatcher.NotifyTechnician(ctx, staffID, domain.NotifyCompletion, rendered); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	case domain.TicketStatusCancelled:
		rendered := CancellationToTechnician(ticket)
		for _, staffID := range payload.AssigneeStaffIDs {
			if _, err := s.dispatcher.NotifyTechnician(ctx, staffID, domain.NotifyCancellation, rendered); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Service) handleRush(ctx context.Context, event events.Event) error {
	ticket := event.Ticket
	payload, ok := event.Payload.(events.RushPayload)
	if ticket == nil || !ok {
		return fmt.Errorf("malformed ticket_rush event %s", event.ID)
	}
	rendered := RushReminder(ticket)
	var firstErr error
	reached := 0
	for _, staffID := range payload.AssigneeStaffIDs {
		sent, err := s.dispatcher.NotifyTechnician(ctx, staffID, domain.NotifyRushReminder, rendered)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if sent {
			reached++
		}
	}
	s.logger.Info("rush reminder dispatched",
		zap.String("ticket_code", ticket.TicketCode),
		zap.Int("assignees", len(payload.AssigneeStaffIDs)),
		zap.Int("reached", reached))
	return firstErr
}
