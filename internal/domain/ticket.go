package domain

import "time"

// TicketStatus enumerates lifecycle states for repair tickets.
type TicketStatus string

const (
	TicketStatusPending      TicketStatus = "PENDING"
	TicketStatusAssigned     TicketStatus = "ASSIGNED"
	TicketStatusInProgress   TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingParts TicketStatus = "WAITING_PARTS"
	TicketStatusCompleted    TicketStatus = "COMPLETED"
	TicketStatusCancelled    TicketStatus = "CANCELLED"
)

// IsTerminal reports whether the status has no outgoing transitions.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusCompleted || s == TicketStatusCancelled
}

// TicketUrgency enumerates how quickly a repair is needed.
type TicketUrgency string

const (
	UrgencyNormal   TicketUrgency = "NORMAL"
	UrgencyUrgent   TicketUrgency = "URGENT"
	UrgencyCritical TicketUrgency = "CRITICAL"
)

// RepairTicket is the aggregate for reported equipment problems.
// TicketCode is globally unique and immutable after creation.
type RepairTicket struct {
	ID         string
	TicketCode string
	Status     TicketStatus
	Urgency    TicketUrgency

	ReporterName       string
	ReporterDepartment *string
	ReporterPhone      *string
	// ReporterUserID links the ticket to an internal account when the
	// reporter is a known user rather than an anonymous guest.
	ReporterUserID *string
	// DirectChannelID is the chat-platform identity captured at intake,
	// present when the reporter came in through the chat channel itself.
	DirectChannelID *string
	// LinkingCode lets a guest bind this ticket to a chat identity later.
	LinkingCode *string

	Category    string
	Title       string
	Description string
	Location    string

	ScheduledAt             *time.Time
	EstimatedCompletionDate *time.Time
	CompletedAt             *time.Time
	CancelledAt             *time.Time

	Notes             *string
	MessageToReporter *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assignee links a ticket to a staff member currently responsible for it.
type Assignee struct {
	TicketID   string
	StaffID    string
	AssignedAt time.Time
}
