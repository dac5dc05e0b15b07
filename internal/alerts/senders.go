package alerts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newswire/internal/db"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// LogSender writes alerts to the structured log.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Channel() string { return "log" }

func (s *LogSender) Send(_ context.Context, alert db.PendingAlert) error {
	s.logger.Warn().
		Int64("trigger_id", alert.TriggerID).
		Int64("article_id", alert.ArticleID).
		Str("rule", alert.RuleName).
		Str("keyword", alert.MatchedKeyword).
		Str("urgency", alert.UrgencyLevel).
		Str("title", alert.Title).
		Msg("news alert")
	return nil
}

// TelegramSender posts alerts through the bot API. The rule target is the
// chat id; DefaultChatID is used when the rule has none.
type TelegramSender struct {
	BotToken      string
	DefaultChatID string
	APIBase       string
	Client        *http.Client
}

func NewTelegramSender(botToken, defaultChatID string) *TelegramSender {
	return &TelegramSender{
		BotToken:      botToken,
		DefaultChatID: defaultChatID,
		APIBase:       defaultTelegramAPIBase,
		Client:        &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *TelegramSender) Channel() string { return "telegram" }

func (s *TelegramSender) Send(ctx context.Context, alert db.PendingAlert) error {
	chatID := strings.TrimSpace(alert.Target)
	if chatID == "" {
		chatID = s.DefaultChatID
	}
	if s.BotToken == "" || chatID == "" {
		return fmt.Errorf("telegram sender misconfigured")
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	base := strings.TrimRight(s.APIBase, "/")
	if base == "" {
		base = defaultTelegramAPIBase
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", base, s.BotToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", FormatMessage(alert))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}
