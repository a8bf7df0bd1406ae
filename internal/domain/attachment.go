package domain

import "time"

// AttachmentKind distinguishes evidence captured at intake from evidence
// captured at completion.
type AttachmentKind string

const (
	AttachmentProblem    AttachmentKind = "PROBLEM"
	AttachmentCompletion AttachmentKind = "COMPLETION"
)

// Attachment is binary evidence owned by a ticket and cascade-deleted with it.
type Attachment struct {
	ID         string
	TicketID   string
	Kind       AttachmentKind
	FileName   string
	StorageKey string
	PublicURL  string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
