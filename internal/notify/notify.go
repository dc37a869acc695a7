// Package notify delivers short notifications about processed emails.
//
// The primary channel is a Telegram bot; when Telegram is not configured
// the agent falls back to a notifier that only writes to the structured
// log so that notification steps still succeed.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers a short text notification to the user.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// TelegramNotifier sends notifications through a Telegram bot chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier creates a notifier that sends messages to the given
// chat. It validates the token against the Telegram API.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Notify sends the text as a Telegram message.
func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}

// LogNotifier writes notifications to the structured log. It is used when
// no Telegram channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-only notifier. A nil logger uses the
// default logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification text.
func (n *LogNotifier) Notify(ctx context.Context, text string) error {
	n.logger.InfoContext(ctx, "Notification", "text", text)
	return nil
}
