package notify

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/line"
	"github.com/fixdesk/repair-service/internal/observability"
	"github.com/fixdesk/repair-service/internal/repository"
)

// Sender is the chat-platform surface the dispatcher pushes through.
type Sender interface {
	Push(ctx context.Context, to string, messages ...line.Message) error
	Multicast(ctx context.Context, to []string, messages ...line.Message) error
}

// Dispatcher delivers rendered messages with bounded retries and records one
// notification-log row per logical send. Delivery failures are reported to
// callers but never abort the workflow that triggered them.
type Dispatcher struct {
	sender     Sender
	links      repository.LinkedChannelRepository
	log        repository.NotificationLogRepository
	metrics    *observability.Metrics
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewDispatcher builds a dispatcher. maxRetries is the number of extra
// attempts after the first.
func NewDispatcher(
	sender Sender,
	links repository.LinkedChannelRepository,
	log repository.NotificationLogRepository,
	metrics *observability.Metrics,
	logger *zap.Logger,
	maxRetries int,
	retryDelay time.Duration,
) *Dispatcher {
	return &Dispatcher{
		sender:     sender,
		links:      links,
		log:        log,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// NotifyStaffOnNewTicket multicasts the new-ticket card to every active staff
// member with a verified channel binding.
func (d *Dispatcher) NotifyStaffOnNewTicket(ctx context.Context, ticket *domain.RepairTicket) error {
	targets, err := d.links.ListVerifiedStaffChannels(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		d.logger.Debug("no staff channels linked, skipping broadcast",
			zap.String("ticket_code", ticket.TicketCode))
		return nil
	}
	rendered := NewTicketToStaff(ticket)
	sendErr := d.sendWithRetry(ctx, func() error {
		return d.sender.Multicast(ctx, targets, rendered.Message)
	})
	for _, target := range targets {
		d.logDelivery(ctx, target, domain.NotifyTicketCreated, rendered, sendErr)
	}
	return sendErr
}

// NotifyTechnician pushes a rendered message to the channel bound to an
// internal staff account. A missing or unverified binding is not an error;
// the bool reports whether a delivery was attempted.
func (d *Dispatcher) NotifyTechnician(ctx context.Context, staffID string, notifType domain.NotificationType, rendered Rendered) (bool, error) {
	link, err := d.links.GetVerifiedByUserID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			d.logger.Debug("staff member has no linked channel",
				zap.String("staff_id", staffID),
				zap.String("type", string(notifType)))
			return false, nil
		}
		return false, err
	}
	sendErr := d.sendWithRetry(ctx, func() error {
		return d.sender.Push(ctx, link.ChannelUserID, rendered.Message)
	})
	d.logDelivery(ctx, link.ChannelUserID, notifType, rendered, sendErr)
	return true, sendErr
}

// NotifyReporter delivers a status update to the ticket's reporter through
// exactly one channel: the ticket's direct channel identity when present,
// otherwise a verified account link. Reporters reachable by neither are
// skipped silently.
func (d *Dispatcher) NotifyReporter(ctx context.Context, ticket *domain.RepairTicket, notifType domain.NotificationType) error {
	target, rendered, ok, err := d.reporterTarget(ctx, ticket, notifType)
	if err != nil || !ok {
		return err
	}
	sendErr := d.sendWithRetry(ctx, func() error {
		return d.sender.Push(ctx, target, rendered.Message)
	})
	d.logDelivery(ctx, target, notifType, rendered, sendErr)
	return sendErr
}

func (d *Dispatcher) reporterTarget(ctx context.Context, ticket *domain.RepairTicket, notifType domain.NotificationType) (string, Rendered, bool, error) {
	if ticket.DirectChannelID != nil && *ticket.DirectChannelID != "" {
		return *ticket.DirectChannelID, renderReporter(ticket, notifType, true), true, nil
	}
	if ticket.ReporterUserID == nil || *ticket.ReporterUserID == "" {
		return "", Rendered{}, false, nil
	}
	link, err := d.links.GetVerifiedByUserID(ctx, *ticket.ReporterUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			d.logger.Debug("reporter not reachable, skipping update",
				zap.String("ticket_code", ticket.TicketCode))
			return "", Rendered{}, false, nil
		}
		return "", Rendered{}, false, err
	}
	return link.ChannelUserID, renderReporter(ticket, notifType, false), true, nil
}

// renderReporter picks the reporter-facing template: a fresh request gets an
// acknowledgement, everything else a status update, each in the rich or plain
// variant matching the channel kind.
func renderReporter(ticket *domain.RepairTicket, notifType domain.NotificationType, direct bool) Rendered {
	if notifType == domain.NotifyTicketCreated {
		if direct {
			return CreatedAckDirect(ticket)
		}
		return CreatedAckLinked(ticket)
	}
	if direct {
		return StatusUpdateDirect(ticket, ticket.Status)
	}
	return StatusUpdateLinked(ticket, ticket.Status)
}

// sendWithRetry runs op until it succeeds or the retries are exhausted,
// waiting attempt*retryDelay between attempts. The last error wins.
func (d *Dispatcher) sendWithRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * d.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = op(); err == nil {
			return nil
		}
		d.logger.Warn("notification attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return err
}

// logDelivery records the final outcome of one logical send.
func (d *Dispatcher) logDelivery(ctx context.Context, target string, notifType domain.NotificationType, rendered Rendered, sendErr error) {
	entry := &domain.NotificationLogEntry{
		Target:  target,
		Type:    notifType,
		Title:   rendered.Title,
		Message: rendered.Body,
		Status:  domain.NotificationSent,
	}
	if sendErr != nil {
		entry.Status = domain.NotificationFailed
		text := sendErr.Error()
		entry.Error = &text
	}
	if d.metrics != nil {
		d.metrics.RecordNotification(string(notifType), string(entry.Status))
	}
	if err := d.log.Create(ctx, entry); err != nil {
		d.logger.Error("write notification log",
			zap.String("target", target),
			zap.String("type", string(notifType)),
			zap.Error(err))
	}
}
