package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apihttp "github.com/fixdesk/repair-service/internal/api/http"
	"github.com/fixdesk/repair-service/internal/api/http/handlers"
	"github.com/fixdesk/repair-service/internal/auth"
	"github.com/fixdesk/repair-service/internal/config"
	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/linkcenter"
)

type memoryStaffRepo struct {
	byID map[string]*domain.StaffMember
}

func (m *memoryStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	member, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return member, nil
}

func (m *memoryStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, member := range m.byID {
		if member.Email == email {
			return member, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryStaffRepo) ListActive(context.Context) ([]domain.StaffMember, error) {
	var result []domain.StaffMember
	for _, member := range m.byID {
		if member.Active {
			result = append(result, *member)
		}
	}
	return result, nil
}

type recordingLinkRepo struct {
	upserts []domain.LinkedChannel
}

func (r *recordingLinkRepo) Upsert(_ context.Context, link *domain.LinkedChannel) error {
	r.upserts = append(r.upserts, *link)
	return nil
}

func (r *recordingLinkRepo) GetVerifiedByUserID(context.Context, string) (*domain.LinkedChannel, error) {
	return nil, pgx.ErrNoRows
}

func (r *recordingLinkRepo) GetByChannelUserID(context.Context, string) (*domain.LinkedChannel, error) {
	return nil, pgx.ErrNoRows
}

func (r *recordingLinkRepo) ListVerifiedStaffChannels(context.Context) ([]string, error) {
	return nil, nil
}

func (r *recordingLinkRepo) MarkUnlinkedByChannelUserID(context.Context, string) error { return nil }

type memoryTokens struct {
	stored map[string]string
}

func (m *memoryTokens) Put(_ context.Context, code, userID string) error {
	if m.stored == nil {
		m.stored = map[string]string{}
	}
	m.stored[code] = userID
	return nil
}

func (m *memoryTokens) Consume(_ context.Context, code string) (string, error) {
	userID, ok := m.stored[code]
	if !ok {
		return "", linkcenter.ErrTokenNotFound
	}
	delete(m.stored, code)
	return userID, nil
}

type authFixture struct {
	app      *fiber.App
	token    string
	linkSvc  *linkcenter.Service
	linkRepo *recordingLinkRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	logger := zap.NewNop()

	staffRepo := &memoryStaffRepo{byID: map[string]*domain.StaffMember{
		"staff-1": {ID: "staff-1", Email: "tech@example.com", DisplayName: "Tech One",
			Role: domain.StaffRoleTechnician, Active: true},
	}}
	tokens := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
	}, "repair-service")
	token, _, err := tokens.Issue(staffRepo.byID["staff-1"])
	require.NoError(t, err)

	linkRepo := &recordingLinkRepo{}
	linkSvc := linkcenter.NewService(linkRepo, stubTicketRepo{}, &memoryTokens{}, logger)

	authHandler := handlers.NewAuthHandler(nil, linkSvc)
	staffHandler := handlers.NewStaffHandler(staffRepo)

	app := fiber.New(fiber.Config{
		ErrorHandler: apihttp.ErrorHandler(logger, nil),
	})
	api := app.Group("/api/v1")
	staff := api.Group("/", auth.Middleware(tokens, staffRepo))
	staff.Post("/auth/link-code", authHandler.LinkCode)
	staff.Get("/staff", staffHandler.List)

	return &authFixture{app: app, token: token, linkSvc: linkSvc, linkRepo: linkRepo}
}

func (f *authFixture) request(t *testing.T, method, path, bearer string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(payload)
}

func TestLinkCodeIssueAndChatConsumeVerifiesAccount(t *testing.T) {
	fixture := newAuthFixture(t)

	status, body := fixture.request(t, fiber.MethodPost, "/api/v1/auth/link-code", fixture.token)
	require.Equal(t, fiber.StatusOK, status)

	var response struct {
		LinkingCode string `json:"linking_code"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &response))
	require.True(t, linkcenter.IsLinkingCode(response.LinkingCode))

	// The code comes back in over chat and verifies the binding.
	result, err := fixture.linkSvc.ConsumeLinkingCode(context.Background(), response.LinkingCode, "U-tech-1")
	require.NoError(t, err)
	assert.Equal(t, "staff-1", result.UserID)

	require.NotEmpty(t, fixture.linkRepo.upserts)
	last := fixture.linkRepo.upserts[len(fixture.linkRepo.upserts)-1]
	assert.Equal(t, domain.LinkVerified, last.Status)
	assert.Equal(t, "U-tech-1", last.ChannelUserID)
	assert.Equal(t, "staff-1", last.UserID)
}

func TestLinkCodeRequiresAuthentication(t *testing.T) {
	fixture := newAuthFixture(t)
	status, _ := fixture.request(t, fiber.MethodPost, "/api/v1/auth/link-code", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestStaffDirectoryListsActiveMembers(t *testing.T) {
	fixture := newAuthFixture(t)
	status, body := fixture.request(t, fiber.MethodGet, "/api/v1/staff", fixture.token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "tech@example.com")
	assert.Contains(t, body, "Tech One")
}
