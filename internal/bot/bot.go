package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"propbot/internal/config"
	"propbot/internal/filter"
	"propbot/internal/i18n"
	"propbot/internal/storage"
	"propbot/internal/wizard"
)

// Telegram allows about 30 messages per second per bot.
const (
	sendRate  = rate.Limit(25)
	sendBurst = 5
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram front-end and the delivery channel for notifications.
type Bot struct {
	api      telegramAPI
	store    storage.Storage
	index    *filter.Index
	tr       *i18n.Translator
	render   *i18n.Renderer
	sessions *wizard.Manager
	cfg      *config.Config
	limiter  *rate.Limiter
	log      *slog.Logger
}

// New creates a Bot with the given Telegram token.
func New(token string, store storage.Storage, index *filter.Index, tr *i18n.Translator, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	client := &http.Client{Timeout: 90 * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newBot(api, store, index, tr, cfg, log), nil
}

func newBot(api telegramAPI, store storage.Storage, index *filter.Index, tr *i18n.Translator, cfg *config.Config, log *slog.Logger) *Bot {
	return &Bot{
		api:      api,
		store:    store,
		index:    index,
		tr:       tr,
		render:   i18n.NewRenderer(tr),
		sessions: wizard.NewManager(),
		cfg:      cfg,
		limiter:  rate.NewLimiter(sendRate, sendBurst),
		log:      log,
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.From == nil {
			return
		}
		if !b.cfg.IsUserAllowed(cb.From.ID) {
			b.reply(cb.Message.Chat.ID, b.tr.T(b.cfg.DefaultLanguage, "access_denied"))
			return
		}
		b.handleCallback(ctx, cb)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.cfg.IsUserAllowed(msg.From.ID) {
		b.reply(msg.Chat.ID, b.tr.T(b.cfg.DefaultLanguage, "access_denied"))
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleText(ctx, msg.Chat.ID, msg.Text)
}

// Send delivers a notification text to chatID. It waits for the shared rate
// limit and returns early with ctx.Err() when ctx ends first.
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	errc := make(chan error, 1)
	go func() {
		_, err := b.api.Send(msg)
		errc <- err
	}()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.replyWithMarkup(chatID, text, nil)
}

func (b *Bot) replyWithMarkup(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// replyError logs err and answers with the generic localized error text.
func (b *Bot) replyError(chatID int64, lang, action string, err error) {
	b.log.Error(action, "chat_id", chatID, "error", err)
	b.reply(chatID, b.tr.T(lang, "error_occurred"))
}

// language returns the stored language of chatID or the configured default.
func (b *Bot) language(ctx context.Context, chatID int64) string {
	u, err := b.store.GetUser(ctx, chatID)
	if err == nil && b.tr.Supported(u.Language) {
		return u.Language
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		b.log.Warn("load user", "chat_id", chatID, "error", err)
	}
	return b.cfg.DefaultLanguage
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	chatID := msg.Chat.ID
	lang := b.language(ctx, chatID)

	b.log.Debug("command", "cmd", cmd, "args", strings.TrimSpace(msg.CommandArguments()), "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID, lang)
	case "help":
		b.reply(chatID, b.tr.T(lang, "help_text"))
	case "language":
		b.handleLanguage(chatID, lang)
	case "search":
		b.handleSearch(chatID, lang)
	case "searches":
		b.handleSearches(ctx, chatID, lang)
	case "cancel":
		b.handleCancel(chatID, lang)
	default:
		b.reply(chatID, b.tr.T(lang, "unknown_command"))
	}
}

func newKeyboard(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
