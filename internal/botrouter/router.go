package botrouter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/config"
	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/line"
	"github.com/fixdesk/repair-service/internal/linkcenter"
	"github.com/fixdesk/repair-service/internal/notify"
	"github.com/fixdesk/repair-service/internal/repository"
)

// statusPageSize is the number of tickets shown per status-check carousel page.
const statusPageSize = 3

// Replier is the reply surface the router answers inbound events through.
type Replier interface {
	Reply(ctx context.Context, replyToken string, messages ...line.Message) error
}

// Router turns inbound chat events into replies and linking-flow side
// effects. Each event is handled in isolation: a panic or error in one event
// never prevents the rest of the batch from being processed.
type Router struct {
	client  Replier
	links   *linkcenter.Service
	tickets repository.TicketRepository
	notelog repository.NotificationLogRepository
	cfg     config.LineConfig
	logger  *zap.Logger
}

// NewRouter builds a router.
func NewRouter(client Replier, links *linkcenter.Service, tickets repository.TicketRepository, notelog repository.NotificationLogRepository, cfg config.LineConfig, logger *zap.Logger) *Router {
	return &Router{client: client, links: links, tickets: tickets, notelog: notelog, cfg: cfg, logger: logger}
}

// HandleEvents processes a verified webhook batch.
func (r *Router) HandleEvents(ctx context.Context, batch []line.Event) {
	for i := range batch {
		r.handleEvent(ctx, batch[i])
	}
}

func (r *Router) handleEvent(ctx context.Context, event line.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic handling chat event",
				zap.String("event_type", string(event.Type)),
				zap.String("webhook_event_id", event.WebhookID),
				zap.Any("panic", rec))
		}
	}()

	var err error
	switch event.Type {
	case line.EventTypeFollow:
		err = r.handleFollow(ctx, event)
	case line.EventTypeUnfollow:
		err = r.handleUnfollow(ctx, event)
	case line.EventTypeMessage:
		err = r.handleMessage(ctx, event)
	case line.EventTypePostback:
		err = r.handlePostback(ctx, event)
	default:
		r.logger.Debug("ignoring unsupported event type",
			zap.String("event_type", string(event.Type)))
	}
	if err != nil {
		r.logger.Error("chat event handling failed",
			zap.String("event_type", string(event.Type)),
			zap.String("webhook_event_id", event.WebhookID),
			zap.Error(err))
	}
}

func (r *Router) handleFollow(ctx context.Context, event line.Event) error {
	err := r.client.Reply(ctx, event.ReplyToken, r.welcomeMenu())
	r.logWelcome(ctx, event.Source.UserID, err)
	return err
}

// logWelcome records the welcome send alongside the other outbound
// notifications so follows show up in the same audit trail.
func (r *Router) logWelcome(ctx context.Context, target string, sendErr error) {
	entry := &domain.NotificationLogEntry{
		Target:  target,
		Type:    domain.NotifyWelcome,
		Title:   "Welcome to the repair desk",
		Message: "Welcome menu delivered on follow",
		Status:  domain.NotificationSent,
	}
	if sendErr != nil {
		entry.Status = domain.NotificationFailed
		text := sendErr.Error()
		entry.Error = &text
	}
	if err := r.notelog.Create(ctx, entry); err != nil {
		r.logger.Warn("write welcome notification log",
			zap.String("target", target),
			zap.Error(err))
	}
}

func (r *Router) handleUnfollow(ctx context.Context, event line.Event) error {
	// No reply token on unfollow; just retire the bindings.
	return r.links.Unlink(ctx, event.Source.UserID)
}

func (r *Router) handleMessage(ctx context.Context, event line.Event) error {
	if event.Message == nil || event.Message.Type != "text" {
		return r.client.Reply(ctx, event.ReplyToken, r.helpMessage())
	}
	text := strings.TrimSpace(event.Message.Text)

	if linkcenter.IsLinkingCode(strings.ToUpper(text)) {
		return r.handleLinkingCode(ctx, event, strings.ToUpper(text))
	}
	if isRepairKeyword(text) {
		return r.client.Reply(ctx, event.ReplyToken, r.intakeLink())
	}
	return r.client.Reply(ctx, event.ReplyToken, r.helpMessage())
}

func isRepairKeyword(text string) bool {
	lowered := strings.ToLower(text)
	return strings.Contains(lowered, "repair") || strings.Contains(text, "แจ้งซ่อม")
}

func (r *Router) handleLinkingCode(ctx context.Context, event line.Event, code string) error {
	result, err := r.links.ConsumeLinkingCode(ctx, code, event.Source.UserID)
	if err != nil {
		if errors.Is(err, linkcenter.ErrCodeUnknown) {
			return r.client.Reply(ctx, event.ReplyToken, line.TextMessage{
				Text: "That code was not recognized. It may have expired — please request a new one.",
			})
		}
		return err
	}
	if result.TicketCode != "" {
		return r.client.Reply(ctx, event.ReplyToken, line.TextMessage{
			Text: fmt.Sprintf("Your repair request %s is now linked to this chat. You will receive status updates here.", result.TicketCode),
		})
	}
	return r.client.Reply(ctx, event.ReplyToken, line.TextMessage{
		Text: "Your account has been linked. You will receive notifications here.",
	})
}

func (r *Router) handlePostback(ctx context.Context, event line.Event) error {
	if event.Postback == nil {
		return nil
	}
	values, err := url.ParseQuery(event.Postback.Data)
	if err != nil {
		return fmt.Errorf("parse postback data: %w", err)
	}
	switch values.Get("action") {
	case "create":
		return r.client.Reply(ctx, event.ReplyToken, r.intakeLink())
	case "check_status":
		page, _ := strconv.Atoi(values.Get("page"))
		if page < 0 {
			page = 0
		}
		return r.replyStatusPage(ctx, event, page)
	case "faq":
		return r.client.Reply(ctx, event.ReplyToken, line.TextMessage{
			Text: "Frequently asked questions: " + r.cfg.FAQURL,
		})
	case "contact":
		return r.client.Reply(ctx, event.ReplyToken, line.TextMessage{Text: r.cfg.ContactText})
	default:
		return r.client.Reply(ctx, event.ReplyToken, r.helpMessage())
	}
}

// replyStatusPage lists the requester's tickets three at a time, newest
// first, as a carousel with a trailing "more" page when needed.
func (r *Router) replyStatusPage(ctx context.Context, event line.Event, page int) error {
	filter := repository.TicketFilter{
		Limit:  statusPageSize + 1,
		Offset: page * statusPageSize,
	}
	userID, verified, err := r.links.VerifiedUserID(ctx, event.Source.UserID)
	if err != nil {
		return err
	}
	if verified {
		filter.ReporterUserID = &userID
	} else {
		channelID := event.Source.UserID
		filter.DirectChannelID = &channelID
	}

	tickets, err := r.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		text := "No repair requests found for this chat."
		if page > 0 {
			text = "No more repair requests."
		}
		return r.client.Reply(ctx, event.ReplyToken, line.TextMessage{Text: text})
	}

	hasMore := len(tickets) > statusPageSize
	if hasMore {
		tickets = tickets[:statusPageSize]
	}
	bubbles := make([]line.Bubble, 0, len(tickets)+1)
	for i := range tickets {
		bubbles = append(bubbles, statusBubble(&tickets[i]))
	}
	if hasMore {
		bubbles = append(bubbles, morePageBubble(page+1))
	}
	return r.client.Reply(ctx, event.ReplyToken, line.FlexMessage{
		AltText:  "Your repair requests",
		Contents: line.Carousel{Bubbles: bubbles},
	})
}

func statusBubble(ticket *domain.RepairTicket) line.Bubble {
	return line.Bubble{
		Header: &line.Box{
			Layout:          "vertical",
			BackgroundColor: notify.StatusColor(ticket.Status),
			PaddingAll:      "12px",
			Contents: []line.Component{
				&line.Text{Text: notify.StatusLabel(ticket.Status), Color: "#FFFFFF", Weight: "bold", Size: "sm"},
				&line.Text{Text: ticket.TicketCode, Color: "#FFFFFF", Size: "xs"},
			},
		},
		Body: &line.Box{
			Layout:  "vertical",
			Spacing: "sm",
			Contents: []line.Component{
				&line.Text{Text: ticket.Title, Weight: "bold", Size: "sm", Wrap: true},
				&line.Text{Text: "Updated " + ticket.UpdatedAt.Format("02 Jan 2006"), Size: "xs", Color: "#8C8C8C"},
			},
		},
	}
}

func morePageBubble(nextPage int) line.Bubble {
	return line.Bubble{
		Body: &line.Box{
			Layout: "vertical",
			Contents: []line.Component{
				&line.Button{
					Style: "primary",
					Action: line.PostbackAction{
						Label: "Show more",
						Data:  fmt.Sprintf("action=check_status&page=%d", nextPage),
					},
				},
			},
		},
	}
}

func (r *Router) welcomeMenu() line.Message {
	return line.FlexMessage{
		AltText: "Welcome to the repair desk",
		Contents: line.Bubble{
			Header: &line.Box{
				Layout:          "vertical",
				BackgroundColor: "#1DB446",
				PaddingAll:      "12px",
				Contents: []line.Component{
					&line.Text{Text: "Repair Desk", Color: "#FFFFFF", Weight: "bold"},
				},
			},
			Body: &line.Box{
				Layout:  "vertical",
				Spacing: "sm",
				Contents: []line.Component{
					&line.Text{Text: "Report equipment problems and follow their progress right here.", Size: "sm", Wrap: true},
				},
			},
			Footer: &line.Box{
				Layout:  "vertical",
				Spacing: "sm",
				Contents: []line.Component{
					&line.Button{
						Style:  "primary",
						Action: line.URIAction{Label: "Report a problem", URI: r.cfg.IntakeFormURL},
					},
					&line.Button{
						Style:  "secondary",
						Action: line.PostbackAction{Label: "Check status", Data: "action=check_status&page=0"},
					},
					&line.Button{
						Style:  "secondary",
						Action: line.PostbackAction{Label: "FAQ", Data: "action=faq"},
					},
					&line.Button{
						Style:  "secondary",
						Action: line.PostbackAction{Label: "Contact us", Data: "action=contact"},
					},
				},
			},
		},
	}
}

func (r *Router) intakeLink() line.Message {
	return line.FlexMessage{
		AltText: "Report a problem",
		Contents: line.Bubble{
			Body: &line.Box{
				Layout:  "vertical",
				Spacing: "sm",
				Contents: []line.Component{
					&line.Text{Text: "Report a problem", Weight: "bold"},
					&line.Text{Text: "Fill in the form and we will take it from there.", Size: "sm", Wrap: true},
				},
			},
			Footer: &line.Box{
				Layout: "vertical",
				Contents: []line.Component{
					&line.Button{
						Style:  "primary",
						Action: line.URIAction{Label: "Open form", URI: r.cfg.IntakeFormURL},
					},
				},
			},
		},
	}
}

func (r *Router) helpMessage() line.Message {
	return line.TextMessage{
		Text: "Hi! Send \"repair\" to report a problem, or use the menu to check the status of your requests.",
	}
}
