package notify

import (
	"fmt"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/line"
)

// Rendered pairs a rich message with the plain title/body recorded in the
// notification log.
type Rendered struct {
	Title   string
	Body    string
	Message line.Message
}

// Presentation lookup tables. Unknown enum values fall back to the default
// entry so rendering never fails for unrecognized-but-present values.
var urgencyLabels = map[domain.TicketUrgency]string{
	domain.UrgencyNormal:   "Normal",
	domain.UrgencyUrgent:   "Urgent",
	domain.UrgencyCritical: "Critical",
}

var urgencyColors = map[domain.TicketUrgency]string{
	domain.UrgencyNormal:   "#1DB446",
	domain.UrgencyUrgent:   "#FF9800",
	domain.UrgencyCritical: "#E53935",
}

var statusLabels = map[domain.TicketStatus]string{
	domain.TicketStatusPending:      "Pending",
	domain.TicketStatusAssigned:     "Assigned",
	domain.TicketStatusInProgress:   "In progress",
	domain.TicketStatusWaitingParts: "Waiting for parts",
	domain.TicketStatusCompleted:    "Completed",
	domain.TicketStatusCancelled:    "Cancelled",
}

var statusColors = map[domain.TicketStatus]string{
	domain.TicketStatusPending:      "#607D8B",
	domain.TicketStatusAssigned:     "#3F51B5",
	domain.TicketStatusInProgress:   "#0288D1",
	domain.TicketStatusWaitingParts: "#F57C00",
	domain.TicketStatusCompleted:    "#1DB446",
	domain.TicketStatusCancelled:    "#9E9E9E",
}

const (
	defaultLabel = "Unknown"
	defaultColor = "#9E9E9E"
)

// UrgencyLabel returns the display label for an urgency value.
func UrgencyLabel(u domain.TicketUrgency) string {
	if label, ok := urgencyLabels[u]; ok {
		return label
	}
	return defaultLabel
}

// UrgencyColor returns the display color for an urgency value.
func UrgencyColor(u domain.TicketUrgency) string {
	if color, ok := urgencyColors[u]; ok {
		return color
	}
	return defaultColor
}

// StatusLabel returns the display label for a status value.
func StatusLabel(s domain.TicketStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return defaultLabel
}

// StatusColor returns the display color for a status value.
func StatusColor(s domain.TicketStatus) string {
	if color, ok := statusColors[s]; ok {
		return color
	}
	return defaultColor
}

// NewTicketToStaff renders the multicast card announcing a new repair request.
func NewTicketToStaff(ticket *domain.RepairTicket) Rendered {
	title := "New repair request " + ticket.TicketCode
	body := fmt.Sprintf("%s (%s) at %s", ticket.Title, UrgencyLabel(ticket.Urgency), ticket.Location)
	return Rendered{
		Title: title,
		Body:  body,
		Message: line.FlexMessage{
			AltText: title,
			Contents: line.Bubble{
				Header: headerBox("New Repair Request", ticket.TicketCode, UrgencyColor(ticket.Urgency)),
				Body: &line.Box{
					Layout:  "vertical",
					Spacing: "sm",
					Contents: []line.Component{
						&line.Text{Text: ticket.Title, Weight: "bold", Size: "md", Wrap: true},
						&line.Separator{Margin: "md"},
						fieldRow("Category", ticket.Category),
						fieldRow("Location", ticket.Location),
						fieldRow("Reporter", ticket.ReporterName),
						fieldRow("Urgency", UrgencyLabel(ticket.Urgency)),
					},
				},
			},
		},
	}
}

// AssignmentToTechnician renders the card telling a technician they were
// assigned a ticket.
func AssignmentToTechnician(ticket *domain.RepairTicket) Rendered {
	title := "Assigned: " + ticket.TicketCode
	body := ticket.Title
	return Rendered{
		Title: title,
		Body:  body,
		Message: line.FlexMessage{
			AltText: title,
			Contents: line.Bubble{
				Header: headerBox("Job Assigned", ticket.TicketCode, UrgencyColor(ticket.Urgency)),
				Body: &line.Box{
					Layout:  "vertical",
					Spacing: "sm",
					Contents: []line.Component{
						&line.Text{Text: ticket.Title, Weight: "bold", Size: "md", Wrap: true},
						fieldRow("Location", ticket.Location),
						fieldRow("Urgency", UrgencyLabel(ticket.Urgency)),
						fieldRow("Reporter", ticket.ReporterName),
					},
				},
			},
		},
	}
}

// StatusUpdateDirect renders the rich card sent straight to the reporter's
// chat identity.
func StatusUpdateDirect(ticket *domain.RepairTicket, newStatus domain.TicketStatus) Rendered {
	title := fmt.Sprintf("%s: %s", ticket.TicketCode, StatusLabel(newStatus))
	contents := []line.Component{
		&line.Text{Text: ticket.Title, Weight: "bold", Size: "md", Wrap: true},
		&line.Box{
			Layout: "baseline",
			Margin: "md",
			Contents: []line.Component{
				&line.Text{Text: "Status", Color: "#8C8C8C", Size: "sm", Flex: 2},
				&line.Text{Text: StatusLabel(newStatus), Color: StatusColor(newStatus), Weight: "bold", Size: "sm", Flex: 4},
			},
		},
	}
	if ticket.MessageToReporter != nil && *ticket.MessageToReporter != "" {
		contents = append(contents,
			&line.Separator{Margin: "md"},
			&line.Text{Text: *ticket.MessageToReporter, Size: "sm", Wrap: true, Margin: "md"})
	}
	if ticket.EstimatedCompletionDate != nil {
		contents = append(contents, fieldRow("Estimated", ticket.EstimatedCompletionDate.Format("02 Jan 2006")))
	}
	return Rendered{
		Title: title,
		Body:  "Status update for " + ticket.TicketCode,
		Message: line.FlexMessage{
			AltText: title,
			Contents: line.Bubble{
				Header: headerBox("Repair Update", ticket.TicketCode, StatusColor(newStatus)),
				Body:   &line.Box{Layout: "vertical", Spacing: "sm", Contents: contents},
			},
		},
	}
}

// StatusUpdateLinked renders the plain update delivered through an
// account-linked channel.
func StatusUpdateLinked(ticket *domain.RepairTicket, newStatus domain.TicketStatus) Rendered {
	title := fmt.Sprintf("%s: %s", ticket.TicketCode, StatusLabel(newStatus))
	text := fmt.Sprintf("Repair %s (%s) is now %s.", ticket.TicketCode, ticket.Title, StatusLabel(newStatus))
	if ticket.MessageToReporter != nil && *ticket.MessageToReporter != "" {
		text += "\n" + *ticket.MessageToReporter
	}
	return Rendered{Title: title, Body: text, Message: line.TextMessage{Text: text}}
}

// CreatedAckDirect renders the confirmation card sent to the chat a new
// request came in from.
func CreatedAckDirect(ticket *domain.RepairTicket) Rendered {
	title := "Received: " + ticket.TicketCode
	return Rendered{
		Title: title,
		Body:  "We received your repair request " + ticket.TicketCode,
		Message: line.FlexMessage{
			AltText: title,
			Contents: line.Bubble{
				Header: headerBox("Request Received", ticket.TicketCode, UrgencyColor(ticket.Urgency)),
				Body: &line.Box{
					Layout:  "vertical",
					Spacing: "sm",
					Contents: []line.Component{
						&line.Text{Text: ticket.Title, Weight: "bold", Size: "md", Wrap: true},
						&line.Text{Text: "We will keep you posted here as work progresses.", Size: "sm", Wrap: true},
						fieldRow("Urgency", UrgencyLabel(ticket.Urgency)),
					},
				},
			},
		},
	}
}

// CreatedAckLinked renders the plain acknowledgement for a reporter reachable
// through an account link.
func CreatedAckLinked(ticket *domain.RepairTicket) Rendered {
	title := "Received: " + ticket.TicketCode
	text := fmt.Sprintf("We received your repair request %s (%s). You will get status updates here.",
		ticket.TicketCode, ticket.Title)
	return Rendered{Title: title, Body: text, Message: line.TextMessage{Text: text}}
}

// CompletionToTechnician renders the completion confirmation for a
// technician who worked the ticket.
func CompletionToTechnician(ticket *domain.RepairTicket) Rendered {
	title := "Completed: " + ticket.TicketCode
	body := fmt.Sprintf("Repair %s (%s) was marked completed.", ticket.TicketCode, ticket.Title)
	return Rendered{Title: title, Body: body, Message: line.TextMessage{Text: body}}
}

// CancellationToTechnician renders the cancellation notice for a technician.
func CancellationToTechnician(ticket *domain.RepairTicket) Rendered {
	title := "Cancelled: " + ticket.TicketCode
	body := fmt.Sprintf("Repair %s (%s) was cancelled.", ticket.TicketCode, ticket.Title)
	if ticket.Notes != nil && *ticket.Notes != "" {
		body += " " + *ticket.Notes
	}
	return Rendered{Title: title, Body: body, Message: line.TextMessage{Text: body}}
}

// RushReminder renders the reminder pushed to assignees of an urgent ticket.
func RushReminder(ticket *domain.RepairTicket) Rendered {
	title := "Reminder: " + ticket.TicketCode
	body := fmt.Sprintf("%s (%s) is still %s. Please follow up.",
		ticket.TicketCode, UrgencyLabel(ticket.Urgency), StatusLabel(ticket.Status))
	return Rendered{
		Title: title,
		Body:  body,
		Message: line.FlexMessage{
			AltText: title,
			Contents: line.Bubble{
				Header: headerBox("Follow Up", ticket.TicketCode, UrgencyColor(ticket.Urgency)),
				Body: &line.Box{
					Layout:  "vertical",
					Spacing: "sm",
					Contents: []line.Component{
						&line.Text{Text: ticket.Title, Weight: "bold", Wrap: true},
						fieldRow("Status", StatusLabel(ticket.Status)),
						fieldRow("Urgency", UrgencyLabel(ticket.Urgency)),
					},
				},
			},
		},
	}
}

func headerBox(heading, code, color string) *line.Box {
	return &line.Box{
		Layout:          "vertical",
		BackgroundColor: color,
		PaddingAll:      "12px",
		Contents: []line.Component{
			&line.Text{Text: heading, Color: "#FFFFFF", Weight: "bold", Size: "sm"},
			&line.Text{Text: code, Color: "#FFFFFF", Size: "xs"},
		},
	}
}

func fieldRow(label, value string) line.Component {
	if value == "" {
		value = "-"
	}
	return &line.Box{
		Layout: "baseline",
		Contents: []line.Component{
			&line.Text{Text: label, Color: "#8C8C8C", Size: "sm", Flex: 2},
			&line.Text{Text: value, Size: "sm", Wrap: true, Flex: 4},
		},
	}
}
