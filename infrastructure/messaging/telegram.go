package messaging

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// EventOrderPlaced is the only event forwarded to the staff chat
const EventOrderPlaced = "order.placed"

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramPublisher posts new orders to a staff chat
type TelegramPublisher struct {
	bot    telegramSender
	chatID int64
}

func NewTelegramPublisher(token string, chatID int64) (*TelegramPublisher, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramPublisher{bot: bot, chatID: chatID}, nil
}

func (p *TelegramPublisher) Name() string { return "telegram" }

func (p *TelegramPublisher) Publish(ctx context.Context, eventType, payload string) error {
	if eventType != EventOrderPlaced {
		return nil
	}
	env, err := decodeEnvelope(payload)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = p.bot.Send(tgbotapi.NewMessage(p.chatID, formatOrderPlaced(env)))
	return err
}

func formatOrderPlaced(env envelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Новый заказ %s", env.OrderNumber)
	if env.TotalCost != "" {
		fmt.Fprintf(&b, "\nСумма: %s", env.TotalCost)
	}
	if env.Channel != "" {
		fmt.Fprintf(&b, "\nИсточник: %s", env.Channel)
	}
	return b.String()
}

func (p *TelegramPublisher) Close() error { return nil }
