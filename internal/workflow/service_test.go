package workflow

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/events"
	"github.com/fixdesk/repair-service/internal/repository"
	apperrors "github.com/fixdesk/repair-service/pkg/util"
)

type fakeTicketRepo struct {
	tickets map[string]*domain.RepairTicket
	seqs    map[string]int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets: make(map[string]*domain.RepairTicket),
		seqs:    make(map[string]int),
	}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.RepairTicket) error {
	ticket.ID = uuid.NewString()
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.RepairTicket) error {
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.RepairTicket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketRepo) GetByCode(_ context.Context, code string) (*domain.RepairTicket, error) {
	for _, ticket := range f.tickets {
		if ticket.TicketCode == code {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) GetByLinkingCode(_ context.Context, code string) (*domain.RepairTicket, error) {
	for _, ticket := range f.tickets {
		if ticket.LinkingCode != nil && *ticket.LinkingCode == code {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.RepairTicket, error) {
	var result []domain.RepairTicket
	for _, ticket := range f.tickets {
		result = append(result, *ticket)
	}
	return result, nil
}

func (f *fakeTicketRepo) NextCodeSequence(_ context.Context, dayKey string) (int, error) {
	f.seqs[dayKey]++
	return f.seqs[dayKey], nil
}

func (f *fakeTicketRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.tickets, id)
	return nil
}

type fakeAssigneeRepo struct {
	byTicket map[string][]string
}

func newFakeAssigneeRepo() *fakeAssigneeRepo {
	return &fakeAssigneeRepo{byTicket: make(map[string][]string)}
}

func (f *fakeAssigneeRepo) Replace(_ context.Context, ticketID string, staffIDs []string) error {
	f.byTicket[ticketID] = append([]string{}, staffIDs...)
	return nil
}

func (f *fakeAssigneeRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Assignee, error) {
	var result []domain.Assignee
	for _, staffID := range f.byTicket[ticketID] {
		result = append(result, domain.Assignee{TicketID: ticketID, StaffID: staffID})
	}
	return result, nil
}

func (f *fakeAssigneeRepo) ListStaffIDs(_ context.Context, ticketID string) ([]string, error) {
	return append([]string{}, f.byTicket[ticketID]...), nil
}

type fakeAttachmentRepo struct {
	attachments []domain.Attachment
}

func (f *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	attachment.ID = uuid.NewString()
	f.attachments = append(f.attachments, *attachment)
	return nil
}

func (f *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	var result []domain.Attachment
	for _, attachment := range f.attachments {
		if attachment.TicketID == ticketID {
			result = append(result, attachment)
		}
	}
	return result, nil
}

type fakeStaffRepo struct {
	staff map[string]*domain.StaffMember
}

func newFakeStaffRepo(members ...domain.StaffMember) *fakeStaffRepo {
	repo := &fakeStaffRepo{staff: make(map[string]*domain.StaffMember)}
	for i := range members {
		repo.staff[members[i].ID] = &members[i]
	}
	return repo
}

func (f *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	member, ok := f.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return member, nil
}

func (f *fakeStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, member := range f.staff {
		if member.Email == email {
			return member, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStaffRepo) ListActive(_ context.Context) ([]domain.StaffMember, error) {
	var result []domain.StaffMember
	for _, member := range f.staff {
		if member.Active {
			result = append(result, *member)
		}
	}
	return result, nil
}

type recordingBus struct {
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) error {
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(events.EventType, events.EventHandler) {}

func (b *recordingBus) byType(eventType events.EventType) []events.Event {
	var result []events.Event
	for _, event := range b.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

type serviceFixture struct {
	service   *Service
	tickets   *fakeTicketRepo
	assignees *fakeAssigneeRepo
	history   *fakeHistoryRepo
	bus       *recordingBus
}

func newServiceFixture(staffMembers ...domain.StaffMember) *serviceFixture {
	tickets := newFakeTicketRepo()
	assignees := newFakeAssigneeRepo()
	history := &fakeHistoryRepo{}
	bus := &recordingBus{}
	logger := zap.NewNop()

	service := NewService(Dependencies{
		TicketRepo:     tickets,
		AssigneeRepo:   assignees,
		AttachmentRepo: &fakeAttachmentRepo{},
		StaffRepo:      newFakeStaffRepo(staffMembers...),
		Codes:          NewCodeGenerator("RP", tickets),
		Ledger:         NewLedger(history, logger),
		Dispatcher:     bus,
		Logger:         logger,
	})
	return &serviceFixture{
		service:   service,
		tickets:   tickets,
		assignees: assignees,
		history:   history,
		bus:       bus,
	}
}

func activeTech(id string) domain.StaffMember {
	return domain.StaffMember{
		ID: id, Email: id + "@example.com", DisplayName: id,
		Role: domain.StaffRoleTechnician, Active: true,
	}
}

func validCreateInput() CreateInput {
	return CreateInput{
		ReporterName: "Somchai",
		Category:     "Printer",
		Title:        "Paper jam on floor 3",
		Description:  "The printer near the stairwell keeps jamming",
		Location:     "Floor 3",
		Urgency:      domain.UrgencyCritical,
	}
}

func TestCreateRequiresFields(t *testing.T) {
	fx := newServiceFixture()
	input := validCreateInput()
	input.Title = "   "

	_, err := fx.service.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	assert.Empty(t, fx.bus.events)
}

func TestCreateRejectsUnknownUrgency(t *testing.T) {
	fx := newServiceFixture()
	input := validCreateInput()
	input.Urgency = "EXTREME"

	_, err := fx.service.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestCreateGuestTicket(t *testing.T) {
	fx := newServiceFixture()

	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^RP-\d{9}$`), ticket.TicketCode)
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, domain.UrgencyCritical, ticket.Urgency)
	require.NotNil(t, ticket.LinkingCode, "guest ticket needs a linking code")
	assert.Regexp(t, regexp.MustCompile(`^LINK-\d{6}-[A-Z0-9]{4}$`), *ticket.LinkingCode)

	created := fx.bus.byType(events.EventTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, domain.SystemActor, created[0].Actor)
	assert.Equal(t, ticket.ID, created[0].Ticket.ID)
}

func TestCreateWithChatIdentitySkipsLinkingCode(t *testing.T) {
	fx := newServiceFixture()
	channelID := "U1234"
	input := validCreateInput()
	input.DirectChannelID = &channelID

	ticket, err := fx.service.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Nil(t, ticket.LinkingCode)
}

func TestUpdateRejectsInvalidTransition(t *testing.T) {
	fx := newServiceFixture()
	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	fx.bus.events = nil

	completed := domain.TicketStatusCompleted
	_, err = fx.service.Update(context.Background(), ticket.ID, Patch{Status: &completed}, testActor)
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", apperrors.ToDomainError(err).Code)

	// Nothing may be applied or announced.
	stored, err := fx.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, stored.Status)
	assert.Empty(t, fx.bus.events)
	assert.Empty(t, fx.history.entries)
}

func TestUpdateIdentityStatusIsNoOp(t *testing.T) {
	fx := newServiceFixture()
	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	fx.bus.events = nil

	pending := domain.TicketStatusPending
	_, err = fx.service.Update(context.Background(), ticket.ID, Patch{Status: &pending}, testActor)
	require.NoError(t, err)

	assert.Empty(t, fx.bus.byType(events.EventTicketStatusChanged))
	assert.Empty(t, fx.history.entries)
}

func TestUpdateAssigneeDelta(t *testing.T) {
	fx := newServiceFixture(activeTech("s1"), activeTech("s2"), activeTech("s3"))
	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	first := []string{"s1", "s2"}
	_, err = fx.service.Update(context.Background(), ticket.ID, Patch{AssigneeIDs: &first}, testActor)
	require.NoError(t, err)
	fx.bus.events = nil
	fx.history.entries = nil

	second := []string{"s2", "s3"}
	_, err = fx.service.Update(context.Background(), ticket.ID, Patch{AssigneeIDs: &second}, testActor)
	require.NoError(t, err)

	assigned := fx.bus.byType(events.EventTicketAssigned)
	require.Len(t, assigned, 1)
	payload, ok := assigned[0].Payload.(events.TicketAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"s3"}, payload.AddedStaffIDs)

	assert.ElementsMatch(t,
		[]domain.HistoryAction{domain.ActionAssign, domain.ActionUnassign},
		actionsOf(fx.history.entries))

	current, err := fx.assignees.ListStaffIDs(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s2", "s3"}, current)
}

func TestUpdateRejectsUnknownOrInactiveAssignee(t *testing.T) {
	inactive := activeTech("s9")
	inactive.Active = false
	fx := newServiceFixture(inactive)
	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	unknown := []string{"ghost"}
	_, err = fx.service.Update(context.Background(), ticket.ID, Patch{AssigneeIDs: &unknown}, testActor)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	inactiveIDs := []string{"s9"}
	_, err = fx.service.Update(context.Background(), ticket.ID, Patch{AssigneeIDs: &inactiveIDs}, testActor)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestUpdateStatusPublishesChange(t *testing.T) {
	fx := newServiceFixture(activeTech("s1"))
	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	assigned := domain.TicketStatusAssigned
	staffIDs := []string{"s1"}
	_, err = fx.service.Update(context.Background(), ticket.ID,
		Patch{Status: &assigned, AssigneeIDs: &staffIDs}, testActor)
	require.NoError(t, err)
	fx.bus.events = nil
	fx.history.entries = nil

	inProgress := domain.TicketStatusInProgress
	updated, err := fx.service.Update(context.Background(), ticket.ID, Patch{Status: &inProgress}, testActor)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	changed := fx.bus.byType(events.EventTicketStatusChanged)
	require.Len(t, changed, 1)
	payload, ok := changed[0].Payload.(events.StatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.TicketStatusAssigned, payload.OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, payload.NewStatus)
	assert.Equal(t, []string{"s1"}, payload.AssigneeStaffIDs)

	require.Len(t, fx.history.entries, 1)
	assert.Equal(t, domain.ActionAccept, fx.history.entries[0].Action)
}

func TestUpdateCompletionStampsTimestamp(t *testing.T) {
	fx := newServiceFixture()
	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	inProgress := domain.TicketStatusInProgress
	_, err = fx.service.Update(context.Background(), ticket.ID, Patch{Status: &inProgress}, testActor)
	require.NoError(t, err)

	completed := domain.TicketStatusCompleted
	updated, err := fx.service.Update(context.Background(), ticket.ID, Patch{Status: &completed}, testActor)
	require.NoError(t, err)
	assert.NotNil(t, updated.CompletedAt)
}

func TestCancelUsesUpdatePath(t *testing.T) {
	fx := newServiceFixture()
	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	fx.bus.events = nil

	cancelled, err := fx.service.Cancel(context.Background(), ticket.ID, "duplicate report", testActor)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	changed := fx.bus.byType(events.EventTicketStatusChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Payload.(events.StatusChangedPayload)
	assert.Equal(t, "duplicate report", payload.Note)

	// A closed ticket rejects further moves.
	inProgress := domain.TicketStatusInProgress
	_, err = fx.service.Update(context.Background(), ticket.ID, Patch{Status: &inProgress}, testActor)
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", apperrors.ToDomainError(err).Code)
}

func TestRush(t *testing.T) {
	fx := newServiceFixture(activeTech("s1"))
	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	// Without assignees there is nobody to remind.
	err = fx.service.Rush(context.Background(), ticket.ID, testActor)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	staffIDs := []string{"s1"}
	assigned := domain.TicketStatusAssigned
	_, err = fx.service.Update(context.Background(), ticket.ID,
		Patch{Status: &assigned, AssigneeIDs: &staffIDs}, testActor)
	require.NoError(t, err)
	fx.bus.events = nil

	require.NoError(t, fx.service.Rush(context.Background(), ticket.ID, testActor))
	rush := fx.bus.byType(events.EventTicketRush)
	require.Len(t, rush, 1)
	payload := rush[0].Payload.(events.RushPayload)
	assert.Equal(t, []string{"s1"}, payload.AssigneeStaffIDs)
}

func TestRushRejectsClosedTicket(t *testing.T) {
	fx := newServiceFixture()
	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	_, err = fx.service.Cancel(context.Background(), ticket.ID, "", testActor)
	require.NoError(t, err)

	err = fx.service.Rush(context.Background(), ticket.ID, testActor)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestPurgeRemovesTicket(t *testing.T) {
	fx := newServiceFixture()
	ticket, err := fx.service.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	require.NoError(t, fx.service.Purge(context.Background(), ticket.ID, testActor))
	_, err = fx.service.GetDetail(context.Background(), ticket.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}
