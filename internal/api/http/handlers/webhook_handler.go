package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/botrouter"
	"github.com/fixdesk/repair-service/internal/line"
	"github.com/fixdesk/repair-service/internal/observability"
	apperrors "github.com/fixdesk/repair-service/pkg/util"
)

// signatureHeader carries the HMAC the platform computed over the raw body.
const signatureHeader = "X-Line-Signature"

// dedupeTTL bounds how long a webhook event id is remembered for replay
// suppression.
const dedupeTTL = time.Hour

// WebhookHandler verifies, de-duplicates and routes inbound chat events.
type WebhookHandler struct {
	channelSecret string
	router        *botrouter.Router
	redis         *redis.Client
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewWebhookHandler builds the handler.
func NewWebhookHandler(channelSecret string, router *botrouter.Router, redisClient *redis.Client, metrics *observability.Metrics, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		channelSecret: channelSecret,
		router:        router,
		redis:         redisClient,
		metrics:       metrics,
		logger:        logger,
	}
}

// Handle processes one webhook delivery. The signature is verified over the
// exact raw body before any parsing. Once verified, the response is always
// 200 so the platform does not retry deliveries we have already accepted;
// malformed payloads and handler failures are logged instead.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	body := c.Body()
	if !line.ValidateSignature(h.channelSecret, body, c.Get(signatureHeader)) {
		return apperrors.NewBadSignature()
	}

	var request line.WebhookRequest
	if err := json.Unmarshal(body, &request); err != nil {
		h.logger.Warn("unparseable webhook payload", zap.Error(err))
		return c.SendStatus(fiber.StatusOK)
	}

	fresh := make([]line.Event, 0, len(request.Events))
	for _, event := range request.Events {
		if h.isDuplicate(c, event.WebhookID) {
			h.logger.Debug("duplicate webhook event skipped",
				zap.String("webhook_event_id", event.WebhookID))
			continue
		}
		h.metrics.RecordWebhookEvent(string(event.Type))
		fresh = append(fresh, event)
	}

	h.router.HandleEvents(c.UserContext(), fresh)
	return c.SendStatus(fiber.StatusOK)
}

// isDuplicate marks the event id as seen and reports whether it already was.
// When Redis is unavailable the event is processed anyway; double delivery
// beats dropped delivery.
func (h *WebhookHandler) isDuplicate(c *fiber.Ctx, webhookEventID string) bool {
	if webhookEventID == "" || h.redis == nil {
		return false
	}
	stored, err := h.redis.SetNX(c.UserContext(), "webhook:event:"+webhookEventID, 1, dedupeTTL).Result()
	if err != nil {
		h.logger.Warn("webhook dedupe check failed", zap.Error(err))
		return false
	}
	return !stored
}
