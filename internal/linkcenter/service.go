package linkcenter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/repository"
)

// TokenSource issues and redeems single-use account-link tokens.
type TokenSource interface {
	Put(ctx context.Context, code, userID string) error
	Consume(ctx context.Context, code string) (string, error)
}

// Service manages bindings between internal accounts and chat identities,
// and the guest-ticket linking flow.
type Service struct {
	links   repository.LinkedChannelRepository
	tickets repository.TicketRepository
	tokens  TokenSource
	logger  *zap.Logger
}

// NewService constructs the linking service.
func NewService(links repository.LinkedChannelRepository, tickets repository.TicketRepository, tokens TokenSource, logger *zap.Logger) *Service {
	return &Service{links: links, tickets: tickets, tokens: tokens, logger: logger}
}

// IssueAccountLinkCode creates a time-boxed code a user can message to the
// bot to verify their account binding.
func (s *Service) IssueAccountLinkCode(ctx context.Context, userID string) (string, error) {
	code := NewLinkingCode(time.Now())
	if err := s.tokens.Put(ctx, code, userID); err != nil {
		return "", err
	}
	expires := time.Now().Add(30 * time.Minute)
	link := &domain.LinkedChannel{
		UserID:          userID,
		ChannelUserID:   "",
		Status:          domain.LinkPending,
		VerifyToken:     &code,
		VerifyExpiresAt: &expires,
	}
	// Channel identity is unknown until the code comes back in over chat;
	// the pending row exists so the flow is visible in the data.
	if err := s.links.Upsert(ctx, link); err != nil {
		s.logger.Warn("persist pending link", zap.Error(err))
	}
	return code, nil
}

// BindResult says what an inbound linking code matched.
type BindResult struct {
	// TicketCode is set when the code bound a guest ticket to the channel.
	TicketCode string
	// UserID is set when the code verified an account link.
	UserID string
}

// ErrCodeUnknown is returned when a linking code matches neither a pending
// guest ticket nor an account-link token.
var ErrCodeUnknown = errors.New("linking code not recognized")

// ConsumeLinkingCode resolves an inbound code: first as a guest-ticket
// linking code, then as an account-link verification token.
func (s *Service) ConsumeLinkingCode(ctx context.Context, code, channelUserID string) (*BindResult, error) {
	ticket, err := s.tickets.GetByLinkingCode(ctx, code)
	if err == nil {
		channelID := channelUserID
		ticket.DirectChannelID = &channelID
		// Linking codes are single use: once bound, the code is retired so a
		// later redemption cannot re-point the ticket at another chat.
		ticket.LinkingCode = nil
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
		s.logger.Info("guest ticket bound to channel",
			zap.String("ticket_code", ticket.TicketCode),
			zap.String("channel_user_id", channelUserID))
		return &BindResult{TicketCode: ticket.TicketCode}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	userID, err := s.tokens.Consume(ctx, code)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrCodeUnknown
		}
		return nil, err
	}
	link := &domain.LinkedChannel{
		UserID:        userID,
		ChannelUserID: channelUserID,
		Status:        domain.LinkVerified,
	}
	if err := s.links.Upsert(ctx, link); err != nil {
		return nil, err
	}
	s.logger.Info("account link verified",
		zap.String("user_id", userID),
		zap.String("channel_user_id", channelUserID))
	return &BindResult{UserID: userID}, nil
}

// Unlink marks every binding for a channel identity as UNLINKED. Used when
// the contact blocks or unfollows the bot.
func (s *Service) Unlink(ctx context.Context, channelUserID string) error {
	return s.links.MarkUnlinkedByChannelUserID(ctx, channelUserID)
}

// VerifiedUserID resolves a channel identity to its internal account when a
// VERIFIED binding exists.
func (s *Service) VerifiedUserID(ctx context.Context, channelUserID string) (string, bool, error) {
	link, err := s.links.GetByChannelUserID(ctx, channelUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	if link.Status != domain.LinkVerified {
		return "", false, nil
	}
	return link.UserID, true, nil
}
