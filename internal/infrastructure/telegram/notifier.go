package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"DocumentClassifier/internal/config"
	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

const defaultAPIURL = "https://api.telegram.org"

// Notifier posts messages to a Telegram chat via bot API.
type Notifier struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
}

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg config.TelegramConfig) *Notifier {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Notifier{
		apiURL:   apiURL,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Enabled reports whether both token and chat are configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// Send posts a plain-text message to the chat.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if !n.Enabled() || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// Mirror delivers through the primary sink and copies each batch to Telegram.
// Telegram failures are logged only; the primary result decides success.
type Mirror struct {
	primary ports.NotificationSink
	chat    *Notifier
	logger  *slog.Logger
}

var _ ports.NotificationSink = (*Mirror)(nil)

// NewMirror wraps primary; a disabled notifier makes the mirror a pass-through.
func NewMirror(primary ports.NotificationSink, chat *Notifier, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{primary: primary, chat: chat, logger: logger}
}

// CreateBulkNotifications implements ports.NotificationSink.
func (m *Mirror) CreateBulkNotifications(ctx context.Context, userIDs []string, n domain.Notification) error {
	if err := m.primary.CreateBulkNotifications(ctx, userIDs, n); err != nil {
		return err
	}

	if !m.chat.Enabled() || len(userIDs) == 0 {
		return nil
	}

	text := fmt.Sprintf("%s\n%s\nRecipients: %d", n.Message, n.Href, len(userIDs))
	if err := m.chat.Send(ctx, text); err != nil {
		m.logger.Warn("telegram mirror failed", "error", err, "recipients", len(userIDs))
	}
	return nil
}
