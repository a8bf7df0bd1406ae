package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/repository"
)

// Ledger appends audit entries for assignment and status actions. Writes
// happen after the parent ticket mutation committed; a failed write is
// logged, never retried, and never fails the mutation.
type Ledger struct {
	history repository.HistoryRepository
	logger  *zap.Logger
}

// NewLedger builds the ledger.
func NewLedger(history repository.HistoryRepository, logger *zap.Logger) *Ledger {
	return &Ledger{history: history, logger: logger}
}

// RecordAssignmentDelta diffs the previous and new assignee sets and appends
// one ASSIGN entry per added staff member and one UNASSIGN entry per removed
// staff member. Retained assignees produce no entry.
func (l *Ledger) RecordAssignmentDelta(ctx context.Context, ticketID string, prev, next []string, actor domain.Actor) {
	prevSet := toSet(prev)
	nextSet := toSet(next)

	for _, staffID := range next {
		staffID := staffID
		if _, existed := prevSet[staffID]; !existed {
			l.append(ctx, entry(ticketID, domain.ActionAssign, actor, &staffID, ""))
		}
	}
	for _, staffID := range prev {
		staffID := staffID
		if _, kept := nextSet[staffID]; !kept {
			l.append(ctx, entry(ticketID, domain.ActionUnassign, actor, &staffID, ""))
		}
	}
}

// RecordStatusChange appends exactly one classified entry for a transition.
func (l *Ledger) RecordStatusChange(ctx context.Context, ticketID string, from, to domain.TicketStatus, actor domain.Actor, note string) {
	action := ClassifyTransition(from, to)
	if note == "" {
		note = string(from) + " -> " + string(to)
	}
	l.append(ctx, entry(ticketID, action, actor, nil, note))
}

// RecordNote appends a NOTE entry.
func (l *Ledger) RecordNote(ctx context.Context, ticketID string, actor domain.Actor, note string) {
	l.append(ctx, entry(ticketID, domain.ActionNote, actor, nil, note))
}

// RecordMessageToReporter appends a MESSAGE_TO_REPORTER entry.
func (l *Ledger) RecordMessageToReporter(ctx context.Context, ticketID string, actor domain.Actor, message string) {
	l.append(ctx, entry(ticketID, domain.ActionMessageToReporter, actor, nil, message))
}

func (l *Ledger) append(ctx context.Context, e *domain.AssignmentHistoryEntry) {
	if err := l.history.Create(ctx, e); err != nil {
		l.logger.Error("ledger write failed",
			zap.String("ticket_id", e.TicketID),
			zap.String("action", string(e.Action)),
			zap.Error(err))
	}
}

func entry(ticketID string, action domain.HistoryAction, actor domain.Actor, assigneeID *string, note string) *domain.AssignmentHistoryEntry {
	e := &domain.AssignmentHistoryEntry{
		TicketID:   ticketID,
		Action:     action,
		ActorName:  actor.DisplayName,
		AssigneeID: assigneeID,
		Note:       note,
	}
	if actor.ID != "" {
		actorID := actor.ID
		e.ActorID = &actorID
	}
	return e
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
