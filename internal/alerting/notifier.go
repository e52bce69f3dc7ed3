package alerting

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sol-price-alerts/internal/alert"
)

// Notification carries one rendered alert to the transport.
type Notification struct {
	Card      []byte // encoded PNG
	Caption   string // HTML markup subset (bold)
	Price     decimal.Decimal
	Delta     decimal.Decimal
	Direction alert.Direction
}

// Notifier delivers a notification to the configured recipient.
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

// TelegramNotifier posts the card as a photo with caption through the
// Telegram Bot API.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier. apiBase overrides
// the endpoint host for tests; empty means api.telegram.org.
func NewTelegramNotifier(botToken string, chatID int64, apiBase string, logger zerolog.Logger) (*TelegramNotifier, error) {
	endpoint := tgbotapi.APIEndpoint
	if apiBase != "" {
		endpoint = strings.TrimRight(apiBase, "/") + "/bot%s/%s"
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(botToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		logger: logger.With().Str("component", "alert_telegram").Logger(),
	}, nil
}

// Notify uploads the card via sendPhoto.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	if len(note.Card) == 0 {
		return fmt.Errorf("notification card is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileBytes{
		Name:  "card.png",
		Bytes: note.Card,
	})
	photo.Caption = note.Caption
	photo.ParseMode = tgbotapi.ModeHTML

	if _, err := n.bot.Send(photo); err != nil {
		return fmt.Errorf("send telegram photo: %w", err)
	}

	n.logger.Info().
		Str("price", note.Price.String()).
		Str("direction", string(note.Direction)).
		Msg("alert delivered (Telegram)")
	return nil
}

var _ Notifier = (*TelegramNotifier)(nil)
