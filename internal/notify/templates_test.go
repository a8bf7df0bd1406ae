package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixdesk/repair-service/internal/domain"
)

func TestLookupFallbacks(t *testing.T) {
	assert.Equal(t, "Critical", UrgencyLabel(domain.UrgencyCritical))
	assert.Equal(t, "Waiting for parts", StatusLabel(domain.TicketStatusWaitingParts))

	// Unrecognized values render with the neutral defaults instead of failing.
	assert.Equal(t, "Unknown", UrgencyLabel("MYSTERY"))
	assert.Equal(t, "Unknown", StatusLabel("MYSTERY"))
	assert.Equal(t, defaultColor, UrgencyColor("MYSTERY"))
	assert.Equal(t, defaultColor, StatusColor("MYSTERY"))
}

func TestNewTicketToStaffRendersCodeAndTitle(t *testing.T) {
	rendered := NewTicketToStaff(sampleTicket())

	assert.Contains(t, rendered.Title, "RP-070368001")
	raw, err := json.Marshal(rendered.Message)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "RP-070368001")
	assert.Contains(t, string(raw), "Projector flickers")
	assert.Contains(t, string(raw), UrgencyColor(domain.UrgencyUrgent))
}

func TestStatusUpdateDirectIncludesReporterMessage(t *testing.T) {
	ticket := sampleTicket()
	message := "Replacement part ordered"
	ticket.MessageToReporter = &message

	rendered := StatusUpdateDirect(ticket, domain.TicketStatusWaitingParts)
	raw, err := json.Marshal(rendered.Message)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Replacement part ordered")
	assert.Contains(t, string(raw), "Waiting for parts")
}

func TestStatusUpdateLinkedIsPlainText(t *testing.T) {
	rendered := StatusUpdateLinked(sampleTicket(), domain.TicketStatusCompleted)
	raw, err := json.Marshal(rendered.Message)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "text", decoded["type"])
	assert.Contains(t, decoded["text"], "RP-070368001")
	assert.Contains(t, decoded["text"], "Completed")
}

func TestCreatedAckRendersAsAcknowledgement(t *testing.T) {
	rendered := CreatedAckDirect(sampleTicket())
	assert.Contains(t, rendered.Title, "Received")
	raw, err := json.Marshal(rendered.Message)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Request Received")
	assert.Contains(t, string(raw), "RP-070368001")
	// An acknowledgement is not a status update.
	assert.NotContains(t, string(raw), "Repair Update")

	linked := CreatedAckLinked(sampleTicket())
	var decoded map[string]any
	raw, err = json.Marshal(linked.Message)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "text", decoded["type"])
	assert.Contains(t, decoded["text"], "We received your repair request RP-070368001")
}

func TestCancellationIncludesNotes(t *testing.T) {
	ticket := sampleTicket()
	notes := "reported twice"
	ticket.Notes = &notes

	rendered := CancellationToTechnician(ticket)
	assert.Contains(t, rendered.Body, "reported twice")
}
