package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"propbot/internal/model"
	"propbot/internal/storage"
)

const (
	callbackWizard = "wz"
	callbackLang   = "lang"
	callbackRun    = "run"
	callbackToggle = "toggle"
	callbackDelete = "delete"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	ack := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(ack); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, value, ok := ParseCallback(cb.Data)
	if !ok {
		return
	}

	b.log.Info("callback",
		"action", action,
		"value", value,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	lang := b.language(ctx, chatID)
	switch action {
	case callbackWizard:
		b.handleWizardChoice(ctx, chatID, lang, value)
	case callbackLang:
		b.handleSetLanguage(ctx, chatID, lang, value)
	case callbackRun, callbackToggle, callbackDelete:
		id, err := ParseID(value)
		if err != nil {
			return
		}
		b.handleSearchAction(ctx, chatID, lang, action, id)
	}
}

func (b *Bot) handleWizardChoice(ctx context.Context, chatID int64, lang, value string) {
	s, ok := b.sessions.Get(chatID)
	if !ok {
		b.reply(chatID, b.tr.T(lang, "nothing_to_cancel"))
		return
	}
	if err := s.Choose(value); err != nil {
		b.log.Debug("wizard choice rejected", "chat_id", chatID, "error", err)
		b.prompt(chatID, lang, s)
		return
	}
	b.advance(ctx, chatID, lang, s)
}

func (b *Bot) handleSetLanguage(ctx context.Context, chatID int64, lang, code string) {
	if !b.tr.Supported(code) {
		return
	}
	u, err := b.store.GetUser(ctx, chatID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		u = &model.User{ChatID: chatID}
	case err != nil:
		b.replyError(chatID, lang, "load user", err)
		return
	}
	u.Language = code
	if err := b.store.SaveUser(ctx, u); err != nil {
		b.replyError(chatID, lang, "save user", err)
		return
	}
	b.reply(chatID, b.tr.T(code, "language_changed"))
}

func (b *Bot) handleSearchAction(ctx context.Context, chatID int64, lang, action string, id int64) {
	ss, err := b.store.GetSearch(ctx, id)
	if err != nil || ss.OwnerID != chatID || !ss.Active {
		if err == nil {
			err = errors.New("search not owned or deleted")
		}
		b.log.Warn("search action", "action", action, "search_id", id, "chat_id", chatID, "error", err)
		b.reply(chatID, b.tr.T(lang, "error_occurred"))
		return
	}

	switch action {
	case callbackRun:
		b.runSearch(ctx, chatID, lang, ss.Criteria)
	case callbackToggle:
		if err := b.store.SetSearchEnabled(ctx, id, !ss.Enabled); err != nil {
			b.replyError(chatID, lang, "toggle search", err)
			return
		}
		status := "notifications_on"
		if ss.Enabled {
			status = "notifications_off"
		}
		b.reply(chatID, b.tr.T(lang, "alert_toggled")+"\n"+b.tr.T(lang, status))
	case callbackDelete:
		if err := b.store.DeactivateSearch(ctx, id); err != nil {
			b.replyError(chatID, lang, "delete search", err)
			return
		}
		b.log.Info("search deleted", "search_id", id, "owner_id", chatID)
		b.reply(chatID, b.tr.T(lang, "alert_deleted"))
	}
}
