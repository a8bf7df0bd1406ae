package workflow

import "github.com/fixdesk/repair-service/internal/domain"

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusPending: {
		domain.TicketStatusAssigned,
		domain.TicketStatusInProgress,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusAssigned: {
		domain.TicketStatusPending,
		domain.TicketStatusInProgress,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusInProgress: {
		domain.TicketStatusWaitingParts,
		domain.TicketStatusCompleted,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusWaitingParts: {
		domain.TicketStatusInProgress,
		domain.TicketStatusCompleted,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusCompleted: {},
	domain.TicketStatusCancelled: {},
}

// ValidTransition reports whether moving from one status to another is legal.
// Identity transitions are always legal so idempotent updates are no-ops on
// the state machine.
func ValidTransition(from, to domain.TicketStatus) bool {
	if from == to {
		return true
	}
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ClassifyTransition tags a status change for the audit ledger. A technician
// moving an assigned ticket into progress accepted the job; pushing it back
// to pending rejected it.
func ClassifyTransition(from, to domain.TicketStatus) domain.HistoryAction {
	switch {
	case from == domain.TicketStatusAssigned && to == domain.TicketStatusInProgress:
		return domain.ActionAccept
	case from == domain.TicketStatusAssigned && to == domain.TicketStatusPending:
		return domain.ActionReject
	default:
		return domain.ActionStatusChange
	}
}
