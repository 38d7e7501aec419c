package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sweepwatch/engine/internal/models"
)

// Telegram delivers notifications via the Telegram Bot API.
type Telegram struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewTelegram creates a new Telegram notifier.
func NewTelegram(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Telegram{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and
// handles bot commands. It returns immediately; the goroutine stops when ctx
// is cancelled.
func (t *Telegram) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				t.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					t.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (t *Telegram) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		t.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (t *Telegram) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		if _, err := t.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(t.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", t.maxRetries, lastErr)
}

// Send delivers one sweep notification.
func (t *Telegram) Send(_ context.Context, n models.Notification) error {
	return t.sendMarkdownV2(formatMessage(n))
}

// formatMessage formats a notification into a Telegram MarkdownV2 message.
func formatMessage(n models.Notification) string {
	emoji := "🟢"
	if n.Side == models.Put {
		emoji = "🔴"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s *%s*\n", emoji, escapeMarkdownV2(title(n))))
	b.WriteString(fmt.Sprintf("💰 Premium \\~$%s\n", escapeMarkdownV2(fmtMoney(n.Premium))))
	b.WriteString(fmt.Sprintf("📊 Vol/OI %s\n", escapeMarkdownV2(fmt.Sprintf("%.2f", n.VolOIRatio))))
	b.WriteString(fmt.Sprintf("🏷 %s / %s\\-%s \\(%s\\)\n",
		escapeMarkdownV2(fmtPrice(n.Last)),
		escapeMarkdownV2(fmtPrice(n.Bid)),
		escapeMarkdownV2(fmtPrice(n.Ask)),
		escapeMarkdownV2(n.Moneyness)))
	if n.TradeTime != "" {
		b.WriteString(fmt.Sprintf("🕐 %s\n", escapeMarkdownV2(n.TradeTime)))
	}
	b.WriteString(fmt.Sprintf("[Chain](%s)", n.DeepLink))
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
