package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client talks to the LINE Messaging API. It is stateless and safe for
// concurrent use; construct one at process start and inject it.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient builds a client for the given endpoint and channel access token.
func NewClient(endpoint, token string, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

type multicastRequest struct {
	To       []string  `json:"to"`
	Messages []Message `json:"messages"`
}

// Push sends messages to a single recipient identity.
func (c *Client) Push(ctx context.Context, to string, messages ...Message) error {
	return c.post(ctx, "/v2/bot/message/push", pushRequest{To: to, Messages: messages})
}

// Reply answers an inbound event using its reply token. Reply tokens are
// single-use; callers must not retry a failed reply with the same token.
func (c *Client) Reply(ctx context.Context, replyToken string, messages ...Message) error {
	return c.post(ctx, "/v2/bot/message/reply", replyRequest{ReplyToken: replyToken, Messages: messages})
}

// Multicast fans one message batch out to many recipient identities in a
// single API call.
func (c *Client) Multicast(ctx context.Context, to []string, messages ...Message) error {
	if len(to) == 0 {
		return nil
	}
	return c.post(ctx, "/v2/bot/message/multicast", multicastRequest{To: to, Messages: messages})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("line api error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return fmt.Errorf("line api %s: status %d", path, resp.StatusCode)
	}
	return nil
}
