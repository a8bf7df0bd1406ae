package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixdesk/repair-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Statuses        []domain.TicketStatus
	Urgencies       []domain.TicketUrgency
	AssigneeID      *string
	ReporterUserID  *string
	DirectChannelID *string
	SearchTerm      *string
	Limit           int
	Offset          int
}

// TicketRepository encapsulates repair ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.RepairTicket) error
	Update(ctx context.Context, ticket *domain.RepairTicket) error
	GetByID(ctx context.Context, id string) (*domain.RepairTicket, error)
	GetByCode(ctx context.Context, code string) (*domain.RepairTicket, error)
	GetByLinkingCode(ctx context.Context, code string) (*domain.RepairTicket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.RepairTicket, error)
	// NextCodeSequence atomically increments and returns the per-day ticket
	// code counter for the given day key.
	NextCodeSequence(ctx context.Context, dayKey string) (int, error)
	// Delete hard-deletes a ticket; assignees, history and attachments
	// cascade with it. Only the administrative purge uses this.
	Delete(ctx context.Context, id string) error
}

const ticketColumns = `id, ticket_code, status, urgency, reporter_name, reporter_department,
               reporter_phone, reporter_user_id, direct_channel_id, linking_code,
               category, title, description, location, scheduled_at,
               estimated_completion_date, completed_at, cancelled_at,
               notes, message_to_reporter, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.RepairTicket) error {
	const query = `
        INSERT INTO repair_tickets (ticket_code, status, urgency, reporter_name, reporter_department,
            reporter_phone, reporter_user_id, direct_channel_id, linking_code,
            category, title, description, location, scheduled_at, estimated_completion_date,
            notes, message_to_reporter)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketCode,
		ticket.Status,
		ticket.Urgency,
		ticket.ReporterName,
		ticket.ReporterDepartment,
		ticket.ReporterPhone,
		ticket.ReporterUserID,
		ticket.DirectChannelID,
		ticket.LinkingCode,
		ticket.Category,
		ticket.Title,
		ticket.Description,
		ticket.Location,
		ticket.ScheduledAt,
		ticket.EstimatedCompletionDate,
		ticket.Notes,
		ticket.MessageToReporter,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.RepairTicket) error {
	const query = `
        UPDATE repair_tickets SET status=$1, urgency=$2, reporter_department=$3, reporter_phone=$4,
            direct_channel_id=$5, linking_code=$6, category=$7, title=$8, description=$9, location=$10,
            scheduled_at=$11, estimated_completion_date=$12, completed_at=$13, cancelled_at=$14,
            notes=$15, message_to_reporter=$16, updated_at=NOW()
        WHERE id=$17`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Urgency,
		ticket.ReporterDepartment,
		ticket.ReporterPhone,
		ticket.DirectChannelID,
		ticket.LinkingCode,
		ticket.Category,
		ticket.Title,
		ticket.Description,
		ticket.Location,
		ticket.ScheduledAt,
		ticket.EstimatedCompletionDate,
		ticket.CompletedAt,
		ticket.CancelledAt,
		ticket.Notes,
		ticket.MessageToReporter,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.RepairTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM repair_tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.RepairTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM repair_tickets WHERE ticket_code=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, code)
}

func (r *ticketRepository) GetByLinkingCode(ctx context.Context, code string) (*domain.RepairTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM repair_tickets WHERE linking_code=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, code)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.RepairTicket, error) {
	var ticket domain.RepairTicket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.RepairTicket, error) {
	base := fmt.Sprintf(`SELECT %s FROM repair_tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Urgencies) > 0 {
		placeholders := make([]string, len(filter.Urgencies))
		for i, urgency := range filter.Urgencies {
			args = append(args, urgency)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("urgency IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("id IN (SELECT ticket_id FROM ticket_assignees WHERE staff_id=$%d)", len(args)))
	}
	if filter.ReporterUserID != nil {
		args = append(args, *filter.ReporterUserID)
		clauses = append(clauses, fmt.Sprintf("reporter_user_id=$%d", len(args)))
	}
	if filter.DirectChannelID != nil {
		args = append(args, *filter.DirectChannelID)
		clauses = append(clauses, fmt.Sprintf("direct_channel_id=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR ticket_code LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RepairTicket
	for rows.Next() {
		var ticket domain.RepairTicket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) NextCodeSequence(ctx context.Context, dayKey string) (int, error) {
	const query = `
        INSERT INTO ticket_code_counters (day_key, seq) VALUES ($1, 1)
        ON CONFLICT (day_key) DO UPDATE SET seq = ticket_code_counters.seq + 1
        RETURNING seq`
	var seq int
	if err := r.pool.QueryRow(ctx, query, dayKey).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM repair_tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.RepairTicket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketCode,
		&ticket.Status,
		&ticket.Urgency,
		&ticket.ReporterName,
		&ticket.ReporterDepartment,
		&ticket.ReporterPhone,
		&ticket.ReporterUserID,
		&ticket.DirectChannelID,
		&ticket.LinkingCode,
		&ticket.Category,
		&ticket.Title,
		&ticket.Description,
		&ticket.Location,
		&ticket.ScheduledAt,
		&ticket.EstimatedCompletionDate,
		&ticket.CompletedAt,
		&ticket.CancelledAt,
		&ticket.Notes,
		&ticket.MessageToReporter,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}
