package dto

import (
	"time"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/workflow"
)

// CreateTicketRequest is the guest/intake payload for a new repair request.
type CreateTicketRequest struct {
	ReporterName       string     `json:"reporter_name"`
	ReporterDepartment *string    `json:"reporter_department,omitempty"`
	ReporterPhone      *string    `json:"reporter_phone,omitempty"`
	ReporterUserID     *string    `json:"reporter_user_id,omitempty"`
	DirectChannelID    *string    `json:"direct_channel_id,omitempty"`
	Category           string     `json:"category"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Location           string     `json:"location"`
	Urgency            string     `json:"urgency,omitempty"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
}

// ToInput converts the request into a workflow create input.
func (r CreateTicketRequest) ToInput() workflow.CreateInput {
	return workflow.CreateInput{
		ReporterName:       r.ReporterName,
		ReporterDepartment: r.ReporterDepartment,
		ReporterPhone:      r.ReporterPhone,
		ReporterUserID:     r.ReporterUserID,
		DirectChannelID:    r.DirectChannelID,
		Category:           r.Category,
		Title:              r.Title,
		Description:        r.Description,
		Location:           r.Location,
		Urgency:            domain.TicketUrgency(r.Urgency),
		ScheduledAt:        r.ScheduledAt,
	}
}

// UpdateTicketRequest is the staff-side patch payload. Absent fields are
// left untouched.
type UpdateTicketRequest struct {
	Status                  *string    `json:"status,omitempty"`
	Urgency                 *string    `json:"urgency,omitempty"`
	AssigneeIDs             *[]string  `json:"assignee_ids,omitempty"`
	Notes                   *string    `json:"notes,omitempty"`
	MessageToReporter       *string    `json:"message_to_reporter,omitempty"`
	ScheduledAt             *time.Time `json:"scheduled_at,omitempty"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date,omitempty"`
	StatusNote              string     `json:"status_note,omitempty"`
}

// ToPatch converts the request into a workflow patch.
func (r UpdateTicketRequest) ToPatch() workflow.Patch {
	patch := workflow.Patch{
		AssigneeIDs:             r.AssigneeIDs,
		Notes:                   r.Notes,
		MessageToReporter:       r.MessageToReporter,
		ScheduledAt:             r.ScheduledAt,
		EstimatedCompletionDate: r.EstimatedCompletionDate,
		StatusNote:              r.StatusNote,
	}
	if r.Status != nil {
		status := domain.TicketStatus(*r.Status)
		patch.Status = &status
	}
	if r.Urgency != nil {
		urgency := domain.TicketUrgency(*r.Urgency)
		patch.Urgency = &urgency
	}
	return patch
}

// CancelTicketRequest carries the cancellation reason.
type CancelTicketRequest struct {
	Reason string `json:"reason,omitempty"`
}

// LoginRequest is the staff credential payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the issued session token.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Staff     StaffResponse `json:"staff"`
}

// StaffResponse is the public view of a staff member.
type StaffResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// FromStaff maps a staff member.
func FromStaff(staff *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:          staff.ID,
		Email:       staff.Email,
		DisplayName: staff.DisplayName,
		Role:        string(staff.Role),
	}
}

// TicketResponse is the public view of a ticket.
type TicketResponse struct {
	ID                      string     `json:"id"`
	TicketCode              string     `json:"ticket_code"`
	Status                  string     `json:"status"`
	Urgency                 string     `json:"urgency"`
	ReporterName            string     `json:"reporter_name"`
	ReporterDepartment      *string    `json:"reporter_department,omitempty"`
	ReporterPhone           *string    `json:"reporter_phone,omitempty"`
	LinkingCode             *string    `json:"linking_code,omitempty"`
	Category                string     `json:"category"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	Location                string     `json:"location"`
	ScheduledAt             *time.Time `json:"scheduled_at,omitempty"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date,omitempty"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	CancelledAt             *time.Time `json:"cancelled_at,omitempty"`
	Notes                   *string    `json:"notes,omitempty"`
	MessageToReporter       *string    `json:"message_to_reporter,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// FromTicket maps a ticket aggregate.
func FromTicket(ticket *domain.RepairTicket) TicketResponse {
	return TicketResponse{
		ID:                      ticket.ID,
		TicketCode:              ticket.TicketCode,
		Status:                  string(ticket.Status),
		Urgency:                 string(ticket.Urgency),
		ReporterName:            ticket.ReporterName,
		ReporterDepartment:      ticket.ReporterDepartment,
		ReporterPhone:           ticket.ReporterPhone,
		LinkingCode:             ticket.LinkingCode,
		Category:                ticket.Category,
		Title:                   ticket.Title,
		Description:             ticket.Description,
		Location:                ticket.Location,
		ScheduledAt:             ticket.ScheduledAt,
		EstimatedCompletionDate: ticket.EstimatedCompletionDate,
		CompletedAt:             ticket.CompletedAt,
		CancelledAt:             ticket.CancelledAt,
		Notes:                   ticket.Notes,
		MessageToReporter:       ticket.MessageToReporter,
		CreatedAt:               ticket.CreatedAt,
		UpdatedAt:               ticket.UpdatedAt,
	}
}

// FromTickets maps a ticket slice.
func FromTickets(tickets []domain.RepairTicket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, FromTicket(&tickets[i]))
	}
	return result
}

// HistoryEntryResponse is the public view of one audit record.
type HistoryEntryResponse struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	ActorID    *string   `json:"actor_id,omitempty"`
	ActorName  string    `json:"actor_name"`
	AssigneeID *string   `json:"assignee_id,omitempty"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttachmentResponse is the public view of an attachment.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	FileName  string    `json:"file_name"`
	PublicURL string    `json:"public_url"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketDetailResponse combines a ticket with its owned records.
type TicketDetailResponse struct {
	TicketResponse
	AssigneeIDs []string               `json:"assignee_ids"`
	History     []HistoryEntryResponse `json:"history"`
	Attachments []AttachmentResponse   `json:"attachments"`
}

// FromDetail maps a workflow detail read model.
func FromDetail(detail *workflow.Detail) TicketDetailResponse {
	response := TicketDetailResponse{
		TicketResponse: FromTicket(detail.Ticket),
		AssigneeIDs:    detail.AssigneeIDs,
		History:        make([]HistoryEntryResponse, 0, len(detail.History)),
		Attachments:    make([]AttachmentResponse, 0, len(detail.Attachments)),
	}
	for _, entry := range detail.History {
		response.History = append(response.History, HistoryEntryResponse{
			ID:         entry.ID,
			Action:     string(entry.Action),
			ActorID:    entry.ActorID,
			ActorName:  entry.ActorName,
			AssigneeID: entry.AssigneeID,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt,
		})
	}
	for _, att := range detail.Attachments {
		response.Attachments = append(response.Attachments, AttachmentResponse{
			ID:        att.ID,
			Kind:      string(att.Kind),
			FileName:  att.FileName,
			PublicURL: att.PublicURL,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
			CreatedAt: att.CreatedAt,
		})
	}
	return response
}
