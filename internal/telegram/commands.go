package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/cryptex-ai/cryptex/internal/logger"
	"github.com/cryptex-ai/cryptex/internal/models"
)

// Watchlist is the watchlist store the command bot mutates.
type Watchlist interface {
	AddTrader(ctx context.Context, t models.WatchedTrader) error
	RemoveTrader(ctx context.Context, identifier string) error
	ListTraders(ctx context.Context) ([]models.WatchedTrader, error)
}

// SignalReader exposes recent signals to the /signals command.
type SignalReader interface {
	RecentSignals(ctx context.Context, limit int) ([]models.EnrichedSignal, error)
}

// ListenForCommands starts a goroutine that polls for Telegram updates and
// handles bot commands. It returns immediately; the goroutine stops when ctx
// is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, watchlist Watchlist, signals SignalReader) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(ctx, update.Message, watchlist, signals)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(ctx context.Context, msg *tgbotapi.Message, watchlist Watchlist, signals SignalReader) {
	var response string

	switch msg.Command() {
	case "ping":
		response = "Pong"
	case "addwallet":
		response = c.handleAddWallet(ctx, msg.CommandArguments(), watchlist)
	case "removewallet":
		response = c.handleRemoveWallet(ctx, msg.CommandArguments(), watchlist)
	case "listwallets":
		response = c.handleListWallets(ctx, watchlist)
	case "signals":
		response = c.handleSignals(ctx, signals)
	default:
		response = "Unknown command. Use /addwallet, /removewallet, /listwallets, /signals."
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = "Markdown"
	if _, err := c.bot.Send(reply); err != nil {
		logger.Warn("Failed to send command reply: %v", err)
	}
}

func (c *Client) handleAddWallet(ctx context.Context, args string, watchlist Watchlist) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "Usage: /addwallet <address> <exchange> [description]"
	}
	trader := models.WatchedTrader{
		Identifier: fields[0],
		Exchange:   fields[1],
	}
	if len(fields) > 2 {
		trader.Description = strings.Join(fields[2:], " ")
	}
	if err := watchlist.AddTrader(ctx, trader); err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return fmt.Sprintf("✅ Wallet added: `%s`", trader.Identifier)
}

func (c *Client) handleRemoveWallet(ctx context.Context, args string, watchlist Watchlist) string {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return "Usage: /removewallet <address>"
	}
	if err := watchlist.RemoveTrader(ctx, fields[0]); err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return fmt.Sprintf("🗑️ Wallet removed: `%s`", fields[0])
}

func (c *Client) handleListWallets(ctx context.Context, watchlist Watchlist) string {
	traders, err := watchlist.ListTraders(ctx)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	if len(traders) == 0 {
		return "📭 No wallets currently tracked."
	}
	lines := make([]string, 0, len(traders)+1)
	lines = append(lines, "📋 Tracked Wallets:")
	for _, t := range traders {
		lines = append(lines, fmt.Sprintf("`%s` (%s) - %s", t.Identifier, t.Exchange, t.Description))
	}
	return strings.Join(lines, "\n")
}

func (c *Client) handleSignals(ctx context.Context, signals SignalReader) string {
	recent, err := signals.RecentSignals(ctx, 5)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	if len(recent) == 0 {
		return "📭 No signals recorded yet."
	}
	lines := make([]string, 0, len(recent)+1)
	lines = append(lines, "📊 Latest signals:")
	for _, s := range recent {
		lines = append(lines, fmt.Sprintf("`%s` %s %s conf %d%% [%s]",
			s.SignalID, s.Direction, s.Asset, s.Confidence, s.Status))
	}
	return strings.Join(lines, "\n")
}
