package reminder

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/conorfennell/lexibox/internal/domain"
)

// LogNotifier writes reminders to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, profile domain.Profile, due int) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Flashcards due", "user_id", profile.ID, "due", due)
	return nil
}

// TelegramNotifier sends reminders to users who linked a Telegram chat
// and hands everyone else to a fallback.
type TelegramNotifier struct {
	bot      *tgbotapi.BotAPI
	fallback Notifier
}

// NewTelegramNotifier connects to the Bot API with token.
func NewTelegramNotifier(token string, fallback Notifier) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(token, tgbotapi.APIEndpoint, fallback)
}

// NewTelegramNotifierWithEndpoint is NewTelegramNotifier against a custom
// Bot API server.
func NewTelegramNotifierWithEndpoint(token, endpoint string, fallback Notifier) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, fallback: fallback}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, profile domain.Profile, due int) error {
	if profile.TelegramChatID == nil {
		if n.fallback == nil {
			return nil
		}
		return n.fallback.Notify(ctx, profile, due)
	}
	msg := tgbotapi.NewMessage(*profile.TelegramChatID, Message(due))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram reminder to %s: %w", profile.ID, err)
	}
	return nil
}
