package events

import (
	"time"

	"github.com/fixdesk/repair-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketRush          EventType = "ticket_rush"
)

// Event represents a domain event emitted by the workflow service. Ticket is
// a snapshot taken after the mutation was durably committed, so handlers do
// not need to re-read it.
type Event struct {
	ID        string
	Type      EventType
	Actor     domain.Actor
	Ticket    *domain.RepairTicket
	Timestamp time.Time
	Payload   interface{}
}

// TicketAssignedPayload lists assignees added by the update.
type TicketAssignedPayload struct {
	AddedStaffIDs []string
}

// StatusChangedPayload carries the transition endpoints.
type StatusChangedPayload struct {
	OldStatus domain.TicketStatus
	NewStatus domain.TicketStatus
	Note      string
	// AssigneeStaffIDs is the assignee set at the time of the change, used
	// for completion/cancellation notifications to technicians.
	AssigneeStaffIDs []string
}

// RushPayload lists the current assignees to remind.
type RushPayload struct {
	AssigneeStaffIDs []string
}
