package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/events"
	"github.com/fixdesk/repair-service/internal/repository"
)

const sweepBatchSize = 100

// RushWorker periodically reminds assignees about urgent tickets that have
// not moved for a while.
type RushWorker struct {
	tickets    repository.TicketRepository
	assignees  repository.AssigneeRepository
	bus        events.Dispatcher
	logger     *zap.Logger
	interval   time.Duration
	staleAfter time.Duration
}

// NewRushWorker builds a worker sweeping every interval for urgent tickets
// untouched for staleAfter.
func NewRushWorker(
	tickets repository.TicketRepository,
	assignees repository.AssigneeRepository,
	bus events.Dispatcher,
	logger *zap.Logger,
	interval, staleAfter time.Duration,
) *RushWorker {
	return &RushWorker{
		tickets:    tickets,
		assignees:  assignees,
		bus:        bus,
		logger:     logger,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

// Run sweeps until the context is cancelled. Call it on its own goroutine.
func (w *RushWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("rush worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("stale_after", w.staleAfter))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rush worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one reminder pass.
func (w *RushWorker) Sweep(ctx context.Context) {
	filter := repository.TicketFilter{
		Statuses: []domain.TicketStatus{
			domain.TicketStatusPending,
			domain.TicketStatusAssigned,
			domain.TicketStatusInProgress,
			domain.TicketStatusWaitingParts,
		},
		Urgencies: []domain.TicketUrgency{domain.UrgencyUrgent, domain.UrgencyCritical},
		Limit:     sweepBatchSize,
	}
	tickets, err := w.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		w.logger.Error("rush sweep listing failed", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-w.staleAfter)
	reminded := 0
	for i := range tickets {
		ticket := &tickets[i]
		if ticket.UpdatedAt.After(cutoff) {
			continue
		}
		assigneeIDs, err := w.assignees.ListStaffIDs(ctx, ticket.ID)
		if err != nil {
			w.logger.Warn("rush sweep assignee lookup failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if len(assigneeIDs) == 0 {
			continue
		}
		_ = w.bus.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketRush,
			Actor:     domain.SystemActor,
			Ticket:    ticket,
			Timestamp: time.Now(),
			Payload:   events.RushPayload{AssigneeStaffIDs: assigneeIDs},
		})
		reminded++
	}
	if reminded > 0 {
		w.logger.Info("rush sweep complete", zap.Int("reminded", reminded))
	}
}
