package notifier

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MaxSendRetries bounds retries of a single message after the first attempt.
var MaxSendRetries uint64 = 3

// TelegramNotifier sends messages to one chat via the Telegram Bot API.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// NewTelegramNotifier authenticates the bot, with optional proxy support.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL string, log *zap.Logger) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{
		Timeout:   60 * time.Second,
		Transport: transport,
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, errors.Wrap(err, "telegram auth")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("telegram authorized", zap.String("bot", bot.Self.UserName))
	return &TelegramNotifier{bot: bot, chatID: chatID, log: log}, nil
}

// Send posts text as HTML, retrying with exponential backoff.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	attempt := 0
	op := func() error {
		attempt++
		if _, err := t.bot.Send(msg); err != nil {
			t.log.Warn("telegram send failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), MaxSendRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return errors.Wrapf(err, "telegram send after %d attempts", attempt)
	}
	return nil
}
