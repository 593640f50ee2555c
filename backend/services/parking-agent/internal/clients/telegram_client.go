package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

const defaultTelegramURL = "https://api.telegram.org"

// TelegramNotifier pushes status messages to one chat. It is best-effort:
// failures are logged and never returned.
type TelegramNotifier struct {
	baseURL  string
	botToken string
	chatID   string
	client   HTTPDoer
	limiter  ratelimit.Limiter
	logger   *zap.Logger
}

// TelegramOption customizes the notifier.
type TelegramOption func(*TelegramNotifier)

// WithTelegramURL points the notifier at another Bot API host.
func WithTelegramURL(baseURL string) TelegramOption {
	return func(n *TelegramNotifier) {
		if baseURL != "" {
			n.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLimiter replaces the send pacing.
func WithLimiter(l ratelimit.Limiter) TelegramOption {
	return func(n *TelegramNotifier) { n.limiter = l }
}

// NewTelegramNotifier returns notifier. perSecond bounds message rate to the chat.
func NewTelegramNotifier(botToken, chatID string, timeout time.Duration, perSecond int, logger *zap.Logger, opts ...TelegramOption) *TelegramNotifier {
	limiter := ratelimit.NewUnlimited()
	if perSecond > 0 {
		limiter = ratelimit.New(perSecond)
	}
	n := &TelegramNotifier{
		baseURL:  defaultTelegramURL,
		botToken: botToken,
		chatID:   chatID,
		client:   NewDefaultHTTPClient(timeout),
		limiter:  limiter,
		logger:   logger.Named("telegram"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify sends message to the configured chat.
func (n *TelegramNotifier) Notify(ctx context.Context, message string) {
	if n.botToken == "" || n.chatID == "" {
		n.logger.Info("telegram not configured, message dropped", zap.String("message", message))
		return
	}

	n.limiter.Take()

	form := url.Values{
		"chat_id":              {n.chatID},
		"text":                 {message},
		"disable_notification": {"false"},
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		n.logger.Warn("telegram request build failed", zap.String("error", n.redact(err)))
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("telegram request failed", zap.String("error", n.redact(err)))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("telegram returned non-success", zap.Int("status", resp.StatusCode))
		return
	}
	n.logger.Debug("telegram message sent")
}

// redact keeps the bot token, which is part of the URL, out of logs.
func (n *TelegramNotifier) redact(err error) string {
	return strings.ReplaceAll(err.Error(), n.botToken, "<bot-token>")
}
