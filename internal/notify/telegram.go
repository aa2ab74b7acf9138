package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"finboard/internal/log"
)

// TelegramSender is the part of *tgbotapi.BotAPI the notifier uses.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier messages users who linked a Telegram chat.
type TelegramNotifier struct {
	api    TelegramSender
	logger *log.Logger
}

// NewTelegramBot connects a bot with the given token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return api, nil
}

func NewTelegramNotifier(api TelegramSender, logger *log.Logger) *TelegramNotifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TelegramNotifier{api: api, logger: logger.WithComponent(log.ComponentNotify)}
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Notify(ctx context.Context, r Reminder) error {
	if r.User.TelegramChatID == 0 {
		return ErrNoAddress
	}

	msg := tgbotapi.NewMessage(r.User.TelegramChatID, "⏰ "+r.Subject()+"\n\n"+r.Body())
	sent, err := n.api.Send(msg)
	if err != nil {
		n.logger.ErrorContext(ctx, "Failed to send telegram reminder", log.FieldOwnerID, r.User.ID, log.FieldError, err)
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.logger.InfoContext(ctx, "Reminder sent on telegram", log.FieldOwnerID, r.User.ID, "message_id", sent.MessageID)
	return nil
}
