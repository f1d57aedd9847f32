// Package telegram delivers compiled digests to a configured chat.
package telegram

import (
	"context"
	"fmt"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/internal/adapters/config"
	"github.com/selivandex/signal-intel/pkg/logger"
	"github.com/selivandex/signal-intel/pkg/models"
)

// Telegram message hard limit is 4096 chars; leave headroom for the header.
const maxMessageLen = 3900

// Notifier sends rendered digests via the Bot API.
type Notifier struct {
	api *tgbotapi.BotAPI
	cfg *config.TelegramConfig
}

// NewNotifier creates new Telegram notifier
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
	)

	return &Notifier{api: bot, cfg: cfg}, nil
}

// SendDigest delivers the rendered digest, truncated to the message limit.
func (n *Notifier) SendDigest(ctx context.Context, digest *models.Digest) error {
	text := truncate(fmt.Sprintf("📊 Signal Intelligence Digest — %s\n\n%s",
		digest.GeneratedAt.Format("2006-01-02 15:04"),
		digest.Rendered,
	), maxMessageLen)

	msg := tgbotapi.NewMessage(n.cfg.ChatID, text)
	msg.ParseMode = "Markdown"

	if _, err := n.api.Send(msg); err != nil {
		logger.Error("failed to send digest",
			zap.Int64("chat_id", n.cfg.ChatID),
			zap.String("digest_id", digest.ID),
			zap.Error(err),
		)
		return err
	}

	logger.Info("digest delivered",
		zap.String("digest_id", digest.ID),
		zap.Int("length", len(text)),
	)
	return nil
}

// truncate cuts text to at most limit bytes on a rune boundary, so a split
// never produces invalid UTF-8, and marks the cut with an ellipsis.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n…"
}
