package linkcenter

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/repository"
)

type fakeLinkRepo struct {
	upserts  []domain.LinkedChannel
	byChan   map[string]*domain.LinkedChannel
	unlinked []string
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{byChan: map[string]*domain.LinkedChannel{}}
}

func (f *fakeLinkRepo) Upsert(_ context.Context, link *domain.LinkedChannel) error {
	f.upserts = append(f.upserts, *link)
	if link.ChannelUserID != "" {
		clone := *link
		f.byChan[link.ChannelUserID] = &clone
	}
	return nil
}

func (f *fakeLinkRepo) GetVerifiedByUserID(context.Context, string) (*domain.LinkedChannel, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeLinkRepo) GetByChannelUserID(_ context.Context, channelUserID string) (*domain.LinkedChannel, error) {
	link, ok := f.byChan[channelUserID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return link, nil
}

func (f *fakeLinkRepo) ListVerifiedStaffChannels(context.Context) ([]string, error) { return nil, nil }

func (f *fakeLinkRepo) MarkUnlinkedByChannelUserID(_ context.Context, channelUserID string) error {
	f.unlinked = append(f.unlinked, channelUserID)
	if link, ok := f.byChan[channelUserID]; ok {
		link.Status = domain.LinkUnlinked
	}
	return nil
}

type fakeTicketLookup struct {
	byLinkingCode map[string]*domain.RepairTicket
	updated       []*domain.RepairTicket
}

func (f *fakeTicketLookup) Create(context.Context, *domain.RepairTicket) error { return nil }

func (f *fakeTicketLookup) Update(_ context.Context, ticket *domain.RepairTicket) error {
	f.updated = append(f.updated, ticket)
	if ticket.LinkingCode == nil {
		for code, existing := range f.byLinkingCode {
			if existing.ID == ticket.ID {
				delete(f.byLinkingCode, code)
			}
		}
	}
	return nil
}

func (f *fakeTicketLookup) GetByID(context.Context, string) (*domain.RepairTicket, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketLookup) GetByCode(context.Context, string) (*domain.RepairTicket, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketLookup) GetByLinkingCode(_ context.Context, code string) (*domain.RepairTicket, error) {
	ticket, ok := f.byLinkingCode[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketLookup) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.RepairTicket, error) {
	return nil, nil
}

func (f *fakeTicketLookup) NextCodeSequence(context.Context, string) (int, error) { return 0, nil }

func (f *fakeTicketLookup) Delete(context.Context, string) error { return nil }

type fakeTokens struct {
	stored map[string]string
}

func (f *fakeTokens) Put(_ context.Context, code, userID string) error {
	if f.stored == nil {
		f.stored = map[string]string{}
	}
	f.stored[code] = userID
	return nil
}

func (f *fakeTokens) Consume(_ context.Context, code string) (string, error) {
	userID, ok := f.stored[code]
	if !ok {
		return "", ErrTokenNotFound
	}
	delete(f.stored, code)
	return userID, nil
}

func newTestService(links *fakeLinkRepo, tickets *fakeTicketLookup, tokens *fakeTokens) *Service {
	return NewService(links, tickets, tokens, zap.NewNop())
}

func TestConsumeLinkingCodeBindsGuestTicket(t *testing.T) {
	linkingCode := "LINK-070368-AAAA"
	tickets := &fakeTicketLookup{byLinkingCode: map[string]*domain.RepairTicket{
		linkingCode: {ID: "t1", TicketCode: "RP-070368001", LinkingCode: &linkingCode},
	}}
	service := newTestService(newFakeLinkRepo(), tickets, &fakeTokens{})

	result, err := service.ConsumeLinkingCode(context.Background(), linkingCode, "U-guest")
	require.NoError(t, err)
	assert.Equal(t, "RP-070368001", result.TicketCode)
	assert.Empty(t, result.UserID)

	require.Len(t, tickets.updated, 1)
	require.NotNil(t, tickets.updated[0].DirectChannelID)
	assert.Equal(t, "U-guest", *tickets.updated[0].DirectChannelID)
	assert.Nil(t, tickets.updated[0].LinkingCode, "the code is retired on bind")
}

func TestGuestLinkingCodeIsSingleUse(t *testing.T) {
	linkingCode := "LINK-070368-AAAA"
	tickets := &fakeTicketLookup{byLinkingCode: map[string]*domain.RepairTicket{
		linkingCode: {ID: "t1", TicketCode: "RP-070368001", LinkingCode: &linkingCode},
	}}
	service := newTestService(newFakeLinkRepo(), tickets, &fakeTokens{})

	_, err := service.ConsumeLinkingCode(context.Background(), linkingCode, "U-guest")
	require.NoError(t, err)

	// A second redemption must not re-point the ticket at another chat.
	_, err = service.ConsumeLinkingCode(context.Background(), linkingCode, "U-hijacker")
	assert.ErrorIs(t, err, ErrCodeUnknown)
	require.Len(t, tickets.updated, 1)
}

func TestConsumeLinkingCodeVerifiesAccountToken(t *testing.T) {
	tokens := &fakeTokens{stored: map[string]string{"LINK-070368-BBBB": "staff-7"}}
	links := newFakeLinkRepo()
	service := newTestService(links, &fakeTicketLookup{}, tokens)

	result, err := service.ConsumeLinkingCode(context.Background(), "LINK-070368-BBBB", "U-staff")
	require.NoError(t, err)
	assert.Equal(t, "staff-7", result.UserID)

	require.NotEmpty(t, links.upserts)
	last := links.upserts[len(links.upserts)-1]
	assert.Equal(t, domain.LinkVerified, last.Status)
	assert.Equal(t, "U-staff", last.ChannelUserID)

	// Tokens are single use.
	_, err = service.ConsumeLinkingCode(context.Background(), "LINK-070368-BBBB", "U-other")
	assert.ErrorIs(t, err, ErrCodeUnknown)
}

func TestConsumeLinkingCodeUnknown(t *testing.T) {
	service := newTestService(newFakeLinkRepo(), &fakeTicketLookup{}, &fakeTokens{})
	_, err := service.ConsumeLinkingCode(context.Background(), "LINK-070368-ZZZZ", "U-x")
	assert.ErrorIs(t, err, ErrCodeUnknown)
}

func TestVerifiedUserID(t *testing.T) {
	links := newFakeLinkRepo()
	links.byChan["U-staff"] = &domain.LinkedChannel{
		UserID: "staff-7", ChannelUserID: "U-staff", Status: domain.LinkVerified,
	}
	links.byChan["U-stale"] = &domain.LinkedChannel{
		UserID: "staff-8", ChannelUserID: "U-stale", Status: domain.LinkPending,
	}
	service := newTestService(links, &fakeTicketLookup{}, &fakeTokens{})

	userID, ok, err := service.VerifiedUserID(context.Background(), "U-staff")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "staff-7", userID)

	_, ok, err = service.VerifiedUserID(context.Background(), "U-stale")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = service.VerifiedUserID(context.Background(), "U-nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnlink(t *testing.T) {
	links := newFakeLinkRepo()
	links.byChan["U-staff"] = &domain.LinkedChannel{
		UserID: "staff-7", ChannelUserID: "U-staff", Status: domain.LinkVerified,
	}
	service := newTestService(links, &fakeTicketLookup{}, &fakeTokens{})

	require.NoError(t, service.Unlink(context.Background(), "U-staff"))
	assert.Equal(t, []string{"U-staff"}, links.unlinked)

	_, ok, err := service.VerifiedUserID(context.Background(), "U-staff")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIssueAccountLinkCode(t *testing.T) {
	tokens := &fakeTokens{}
	service := newTestService(newFakeLinkRepo(), &fakeTicketLookup{}, tokens)

	code, err := service.IssueAccountLinkCode(context.Background(), "staff-7")
	require.NoError(t, err)
	assert.True(t, IsLinkingCode(code))
	assert.Equal(t, "staff-7", tokens.stored[code])
}
