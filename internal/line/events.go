package line

// WebhookRequest is the inbound event batch posted by the platform.
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// EventType enumerates inbound webhook event kinds.
type EventType string

const (
	EventTypeFollow   EventType = "follow"
	EventTypeUnfollow EventType = "unfollow"
	EventTypeMessage  EventType = "message"
	EventTypePostback EventType = "postback"
)

// Event is one inbound webhook event.
type Event struct {
	Type       EventType      `json:"type"`
	WebhookID  string         `json:"webhookEventId"`
	Timestamp  int64          `json:"timestamp"`
	ReplyToken string         `json:"replyToken,omitempty"`
	Source     EventSource    `json:"source"`
	Message    *MessageDetail `json:"message,omitempty"`
	Postback   *Postback      `json:"postback,omitempty"`
}

// EventSource identifies who the event came from.
type EventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId,omitempty"`
}

// MessageDetail carries the inbound message payload; only text messages are
// routed, other kinds fall through to the help reply.
type MessageDetail struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// Postback carries the action payload of a postback event.
type Postback struct {
	Data string `json:"data"`
}
