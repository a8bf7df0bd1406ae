package handlers_test

import (
	"bytes"
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
	"github.com/fixdesk/repair-service/internal/botrouter"
	"github.com/fixdesk/repair-service/internal/config"
	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/line"
	"github.com/fixdesk/repair-service/internal/linkcenter"
	"github.com/fixdesk/repair-service/internal/observability"
	"github.com/fixdesk/repair-service/internal/repository"
)

const testChannelSecret = "test-channel-secret"

type stubReplier struct {
	replies int
}

func (s *stubReplier) Reply(context.Context, string, ...line.Message) error {
	s.replies++
	return nil
}

type stubLinkRepo struct{}

func (stubLinkRepo) Upsert(context.Context, *domain.LinkedChannel) error { return nil }
func (stubLinkRepo) GetVerifiedByUserID(context.Context, string) (*domain.LinkedChannel, error) {
	return nil, pgx.ErrNoRows
}
func (stubLinkRepo) GetByChannelUserID(context.Context, string) (*domain.LinkedChannel, error) {
	return nil, pgx.ErrNoRows
}
func (stubLinkRepo) ListVerifiedStaffChannels(context.Context) ([]string, error) { return nil, nil }
func (stubLinkRepo) MarkUnlinkedByChannelUserID(context.Context, string) error   { return nil }

type stubTicketRepo struct{}

func (stubTicketRepo) Create(context.Context, *domain.RepairTicket) error { return nil }
func (stubTicketRepo) Update(context.Context, *domain.RepairTicket) error { return nil }
func (stubTicketRepo) GetByID(context.Context, string) (*domain.RepairTicket, error) {
	return nil, pgx.ErrNoRows
}
func (stubTicketRepo) GetByCode(context.Context, string) (*domain.RepairTicket, error) {
	return nil, pgx.ErrNoRows
}
func (stubTicketRepo) GetByLinkingCode(context.Context, string) (*domain.RepairTicket, error) {
	return nil, pgx.ErrNoRows
}
func (stubTicketRepo) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.RepairTicket, error) {
	return nil, nil
}
func (stubTicketRepo) NextCodeSequence(context.Context, string) (int, error) { return 0, nil }
func (stubTicketRepo) Delete(context.Context, string) error                  { return nil }

type stubNoteLog struct{}

func (stubNoteLog) Create(context.Context, *domain.NotificationLogEntry) error { return nil }
func (stubNoteLog) ListRecent(context.Context, int) ([]domain.NotificationLogEntry, error) {
	return nil, nil
}

type stubTokens struct{}

func (stubTokens) Put(context.Context, string, string) error { return nil }
func (stubTokens) Consume(context.Context, string) (string, error) {
	return "", linkcenter.ErrTokenNotFound
}

func newWebhookApp(t *testing.T) (*fiber.App, *stubReplier) {
	t.Helper()
	logger := zap.NewNop()
	replier := &stubReplier{}

	linkService := linkcenter.NewService(stubLinkRepo{}, stubTicketRepo{}, stubTokens{}, logger)
	router := botrouter.NewRouter(replier, linkService, stubTicketRepo{}, stubNoteLog{}, config.LineConfig{
		IntakeFormURL: "https://forms.example.com/repair",
	}, logger)

	handler := handlers.NewWebhookHandler(testChannelSecret, router, nil, observability.NewMetrics(), logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: apihttp.ErrorHandler(logger, nil),
	})
	app.Post("/webhook/line", handler.Handle)
	return app, replier
}

func webhookBody(t *testing.T, batch []line.Event) []byte {
	t.Helper()
	raw, err := json.Marshal(line.WebhookRequest{Destination: "U-bot", Events: batch})
	require.NoError(t, err)
	return raw
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/webhook/line", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(payload)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	app, _ := newWebhookApp(t)
	status, body := postWebhook(t, app, webhookBody(t, nil), "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "BAD_SIGNATURE")
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	app, _ := newWebhookApp(t)
	body := webhookBody(t, nil)
	signature := line.Sign(testChannelSecret, body)

	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] ^= 0x01
	status, _ := postWebhook(t, app, tampered, signature)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestWebhookProcessesSignedBatch(t *testing.T) {
	app, replier := newWebhookApp(t)
	body := webhookBody(t, []line.Event{{
		Type:       line.EventTypeFollow,
		WebhookID:  "evt-1",
		ReplyToken: "rt-1",
		Source:     line.EventSource{Type: "user", UserID: "U1"},
	}})

	status, _ := postWebhook(t, app, body, line.Sign(testChannelSecret, body))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, replier.replies)
}

func TestWebhookAcceptsMalformedJSONAfterVerification(t *testing.T) {
	app, replier := newWebhookApp(t)
	body := []byte(`{"events": not-json`)

	status, _ := postWebhook(t, app, body, line.Sign(testChannelSecret, body))
	// Verified deliveries are always acknowledged so the platform stops
	// retrying; the bad payload is only logged.
	assert.Equal(t, fiber.StatusOK, status)
	assert.Zero(t, replier.replies)
}
