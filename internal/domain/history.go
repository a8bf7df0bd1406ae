package domain

import "time"

// HistoryAction enumerates discrete state-affecting actions on a ticket.
type HistoryAction string

const (
	ActionAssign            HistoryAction = "ASSIGN"
	ActionUnassign          HistoryAction = "UNASSIGN"
	ActionStatusChange      HistoryAction = "STATUS_CHANGE"
	ActionAccept            HistoryAction = "ACCEPT"
	ActionReject            HistoryAction = "REJECT"
	ActionNote              HistoryAction = "NOTE"
	ActionMessageToReporter HistoryAction = "MESSAGE_TO_REPORTER"
)

// AssignmentHistoryEntry is an append-only audit record. Entries are never
// updated or deleted; one entry is written per discrete action.
type AssignmentHistoryEntry struct {
	ID       string
	TicketID string
	Action   HistoryAction
	// ActorID is nil for system-originated entries.
	ActorID   *string
	ActorName string
	// AssigneeID identifies the target staff member for ASSIGN/UNASSIGN.
	AssigneeID *string
	Note       string
	CreatedAt  time.Time
}
