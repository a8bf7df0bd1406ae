package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixdesk/repair-service/internal/domain"
)

// LinkedChannelRepository persists bindings between internal accounts and
// chat-platform identities.
type LinkedChannelRepository interface {
	Upsert(ctx context.Context, link *domain.LinkedChannel) error
	GetVerifiedByUserID(ctx context.Context, userID string) (*domain.LinkedChannel, error)
	GetByChannelUserID(ctx context.Context, channelUserID string) (*domain.LinkedChannel, error)
	// ListVerifiedStaffChannels returns channel identities of active staff
	// with a VERIFIED binding, for multicast fan-out.
	ListVerifiedStaffChannels(ctx context.Context) ([]string, error)
	MarkUnlinkedByChannelUserID(ctx context.Context, channelUserID string) error
}

const linkedChannelColumns = `id, user_id, channel_user_id, status, verify_token, verify_expires_at, created_at, updated_at`

type linkedChannelRepository struct {
	pool *pgxpool.Pool
}

// NewLinkedChannelRepository builds repository.
func NewLinkedChannelRepository(pool *pgxpool.Pool) LinkedChannelRepository {
	return &linkedChannelRepository{pool: pool}
}

func (r *linkedChannelRepository) Upsert(ctx context.Context, link *domain.LinkedChannel) error {
	const query = `
        INSERT INTO linked_channels (user_id, channel_user_id, status, verify_token, verify_expires_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id, channel_user_id) DO UPDATE
            SET status=EXCLUDED.status,
                verify_token=EXCLUDED.verify_token,
                verify_expires_at=EXCLUDED.verify_expires_at,
                updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		link.UserID,
		link.ChannelUserID,
		link.Status,
		link.VerifyToken,
		link.VerifyExpiresAt,
	).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
}

func (r *linkedChannelRepository) GetVerifiedByUserID(ctx context.Context, userID string) (*domain.LinkedChannel, error) {
	query := `SELECT ` + linkedChannelColumns + `
        FROM linked_channels WHERE user_id=$1 AND status='VERIFIED'
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, userID)
}

func (r *linkedChannelRepository) GetByChannelUserID(ctx context.Context, channelUserID string) (*domain.LinkedChannel, error) {
	query := `SELECT ` + linkedChannelColumns + `
        FROM linked_channels WHERE channel_user_id=$1
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, channelUserID)
}

func (r *linkedChannelRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.LinkedChannel, error) {
	var link domain.LinkedChannel
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&link.ID,
		&link.UserID,
		&link.ChannelUserID,
		&link.Status,
		&link.VerifyToken,
		&link.VerifyExpiresAt,
		&link.CreatedAt,
		&link.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *linkedChannelRepository) ListVerifiedStaffChannels(ctx context.Context) ([]string, error) {
	const query = `
        SELECT lc.channel_user_id
        FROM linked_channels lc
        JOIN staff_members sm ON sm.id::text = lc.user_id
        WHERE lc.status='VERIFIED' AND sm.active`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var channelID string
		if err := rows.Scan(&channelID); err != nil {
			return nil, err
		}
		result = append(result, channelID)
	}
	return result, rows.Err()
}

func (r *linkedChannelRepository) MarkUnlinkedByChannelUserID(ctx context.Context, channelUserID string) error {
	const query = `
        UPDATE linked_channels SET status='UNLINKED', updated_at=NOW()
        WHERE channel_user_id=$1 AND status <> 'UNLINKED'`
	_, err := r.pool.Exec(ctx, query, channelUserID)
	return err
}
