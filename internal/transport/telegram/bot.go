package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/bobbin/internal/config"
	"github.com/sandevgo/bobbin/internal/service/turn"
	"github.com/sandevgo/bobbin/pkg/conv"
	"github.com/sandevgo/bobbin/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

type Bot struct {
	bot     *tele.Bot
	cfg     *config.TelegramConfig
	orch    *turn.Orchestrator
	ownerID int64

	mu       sync.Mutex
	sessions map[int64]*turn.Session
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	orch *turn.Orchestrator,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		cfg:      cfg,
		orch:     orch,
		ownerID:  cfg.OwnerID,
		sessions: make(map[int64]*turn.Session),
	}

	// Use context from signal handling with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Middleware: only allow the owner
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender().ID != bot.ownerID {
				return nil // Ignore unauthorized users
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)

	session := b.sessionFor(c.Chat().ID)

	// Notify the user we are working; streaming deltas are not forwarded to
	// Telegram, the reply goes out as one message once the turn completes.
	_ = c.Notify(tele.Typing)

	output, err := b.orch.RunTurn(ctx, session, c.Text(), nil)
	if err != nil {
		logger.Error().Err(err).Msg("turn failed")
		return c.Send(fmt.Sprintf("error: %v", err))
	}

	htmlContent := strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(output)))
	if htmlContent == "" {
		return nil
	}
	if err := c.Send(htmlContent, tele.ModeHTML); err != nil {
		logger.Error().Err(err).Msg("failed to send telegram message, retrying as plain text")
		return c.Send(conv.MarkdownToPlainText([]byte(output)))
	}
	return nil
}

func (b *Bot) sessionFor(chatID int64) *turn.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	if !ok {
		s = &turn.Session{ID: fmt.Sprintf("telegram-%d", chatID)}
		b.sessions[chatID] = s
	}
	return s
}
