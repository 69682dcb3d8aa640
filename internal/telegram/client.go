// Package telegram delivers signal alerts and serves the operator command
// bot via the Telegram Bot API.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/cryptex-ai/cryptex/internal/models"
)

// Client handles Telegram notifications and commands.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
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

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// DispatchSignal sends a high-confidence signal alert.
func (c *Client) DispatchSignal(sig models.EnrichedSignal) error {
	return c.sendMarkdownV2(formatSignal(sig))
}

// SendError sends a pipeline error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Pipeline error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Pipeline recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// formatSignal renders the enriched signal alert.
func formatSignal(sig models.EnrichedSignal) string {
	var b strings.Builder
	b.WriteString("🚨 *Cryptex Signal Detected* 🚨\n\n")
	b.WriteString(fmt.Sprintf("*Trader:* `%s`\n", escapeMarkdownV2(sig.TraderID)))
	b.WriteString(fmt.Sprintf("*Trade:* `%s` *%s*\n",
		escapeMarkdownV2(string(sig.Direction)), escapeMarkdownV2(sig.Asset)))
	b.WriteString(fmt.Sprintf("*Size:* `$%s` at `%dx` leverage\n\n",
		escapeMarkdownV2(humanize.Commaf(sig.TradeSizeUSD)), sig.Leverage))
	b.WriteString(fmt.Sprintf("*Catalyst:* %s\n\n", escapeMarkdownV2(sig.CatalystHeadline)))
	b.WriteString(fmt.Sprintf("*Safety:* `%s`", escapeMarkdownV2(string(sig.SafetyRating))))
	b.WriteString(fmt.Sprintf("  *Confidence:* `%d%%`\n\n", sig.Confidence))
	if sig.Summary != "" {
		b.WriteString(escapeMarkdownV2(sig.Summary))
		b.WriteString("\n")
	}
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
