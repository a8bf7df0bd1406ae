package domain

import "time"

// NotificationStatus marks the outcome of an outbound send.
type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "SENT"
	NotificationFailed NotificationStatus = "FAILED"
)

// NotificationType labels the kind of message that was sent.
type NotificationType string

const (
	NotifyTicketCreated NotificationType = "TICKET_CREATED"
	NotifyAssignment    NotificationType = "ASSIGNMENT"
	NotifyStatusUpdate  NotificationType = "STATUS_UPDATE"
	NotifyCompletion    NotificationType = "COMPLETION"
	NotifyCancellation  NotificationType = "CANCELLATION"
	NotifyRushReminder  NotificationType = "RUSH_REMINDER"
	NotifyWelcome       NotificationType = "WELCOME"
)

// NotificationLogEntry records one attempted outbound send. Append-only;
// used for audit and troubleshooting, never read back into workflow decisions.
type NotificationLogEntry struct {
	ID        string
	Target    string
	Type      NotificationType
	Title     string
	Message   string
	Status    NotificationStatus
	Error     *string
	CreatedAt time.Time
}
