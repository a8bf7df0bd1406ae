package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixdesk/repair-service/internal/domain"
)

// AssigneeRepository manages the staff set responsible for a ticket.
type AssigneeRepository interface {
	// Replace swaps the assignee set in a single transaction so readers
	// never observe a half-applied set.
	Replace(ctx context.Context, ticketID string, staffIDs []string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignee, error)
	ListStaffIDs(ctx context.Context, ticketID string) ([]string, error)
}

type assigneeRepository struct {
	pool *pgxpool.Pool
}

// NewAssigneeRepository builds repository.
func NewAssigneeRepository(pool *pgxpool.Pool) AssigneeRepository {
	return &assigneeRepository{pool: pool}
}

func (r *assigneeRepository) Replace(ctx context.Context, ticketID string, staffIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM ticket_assignees WHERE ticket_id=$1`, ticketID); err != nil {
		return err
	}
	for _, staffID := range staffIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ticket_assignees (ticket_id, staff_id) VALUES ($1,$2)`,
			ticketID, staffID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *assigneeRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignee, error) {
	const query = `
        SELECT ticket_id, staff_id, assigned_at
        FROM ticket_assignees WHERE ticket_id=$1 ORDER BY assigned_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignee
	for rows.Next() {
		var assignee domain.Assignee
		if err := rows.Scan(&assignee.TicketID, &assignee.StaffID, &assignee.AssignedAt); err != nil {
			return nil, err
		}
		result = append(result, assignee)
	}
	return result, rows.Err()
}

func (r *assigneeRepository) ListStaffIDs(ctx context.Context, ticketID string) ([]string, error) {
	assignees, err := r.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(assignees))
	for _, assignee := range assignees {
		ids = append(ids, assignee.StaffID)
	}
	return ids, nil
}
