package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"propbot/internal/filter"
	"propbot/internal/i18n"
	"propbot/internal/model"
	"propbot/internal/storage"
	"propbot/internal/wizard"
)

// maxResults caps the listings shown for an on-demand search.
const maxResults = 5

func (b *Bot) handleStart(ctx context.Context, chatID int64, lang string) {
	_, err := b.store.GetUser(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		err = b.store.SaveUser(ctx, &model.User{ChatID: chatID, Language: lang})
	}
	if err != nil {
		b.log.Error("register user", "chat_id", chatID, "error", err)
	}
	b.reply(chatID, b.tr.T(lang, "welcome"))
}

func (b *Bot) handleLanguage(chatID int64, lang string) {
	var row []tgbotapi.InlineKeyboardButton
	for _, code := range b.tr.Languages() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.tr.T(code, "language_label"), callbackLang+":"+code))
	}
	b.replyWithMarkup(chatID, b.tr.T(lang, "choose_language"), newKeyboard(row))
}

func (b *Bot) handleSearch(chatID int64, lang string) {
	b.prompt(chatID, lang, b.sessions.Start(chatID))
}

func (b *Bot) handleSearches(ctx context.Context, chatID int64, lang string) {
	searches, err := b.store.ListSearches(ctx, chatID)
	if err != nil {
		b.replyError(chatID, lang, "list searches", err)
		return
	}
	if len(searches) == 0 {
		b.reply(chatID, b.tr.T(lang, "no_saved_searches"))
		return
	}

	b.reply(chatID, b.tr.T(lang, "my_searches_list"))
	for _, ss := range searches {
		b.replyWithMarkup(chatID, FormatSearch(b.tr, lang, ss), newKeyboard(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(b.tr.T(lang, "run_search"), searchCallback(callbackRun, ss.ID)),
			tgbotapi.NewInlineKeyboardButtonData(b.tr.T(lang, "toggle_alert"), searchCallback(callbackToggle, ss.ID)),
			tgbotapi.NewInlineKeyboardButtonData(b.tr.T(lang, "delete_alert"), searchCallback(callbackDelete, ss.ID)),
		)))
	}
}

func (b *Bot) handleCancel(chatID int64, lang string) {
	if s, ok := b.sessions.Get(chatID); ok {
		s.Cancel()
		b.sessions.End(chatID)
		b.reply(chatID, b.tr.T(lang, "cancelled"))
		return
	}
	b.reply(chatID, b.tr.T(lang, "nothing_to_cancel"))
}

// handleText feeds free-form input into the search builder.
func (b *Bot) handleText(ctx context.Context, chatID int64, text string) {
	lang := b.language(ctx, chatID)
	s, ok := b.sessions.Get(chatID)
	if !ok {
		b.reply(chatID, b.tr.T(lang, "unknown_command"))
		return
	}

	if err := s.Text(text); err != nil {
		switch {
		case errors.Is(err, wizard.ErrInvalidPrice):
			b.reply(chatID, b.tr.T(lang, "invalid_price"))
		case errors.Is(err, wizard.ErrInvalidRange):
			b.reply(chatID, b.tr.T(lang, "invalid_range"))
		case errors.Is(err, wizard.ErrInvalidName):
			b.reply(chatID, b.tr.T(lang, "invalid_name"))
		default:
			b.prompt(chatID, lang, s)
		}
		return
	}
	b.advance(ctx, chatID, lang, s)
}

// advance prompts for the next step or completes the session.
func (b *Bot) advance(ctx context.Context, chatID int64, lang string, s *wizard.Session) {
	if s.State == wizard.StateDone {
		b.finish(ctx, chatID, lang, s)
		return
	}
	b.prompt(chatID, lang, s)
}

func (b *Bot) prompt(chatID int64, lang string, s *wizard.Session) {
	choice := func(key, value string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(b.tr.T(lang, key), callbackWizard+":"+value)
	}

	switch s.State {
	case wizard.StateType:
		b.replyWithMarkup(chatID, b.tr.T(lang, "choose_property_type"), newKeyboard(
			tgbotapi.NewInlineKeyboardRow(choice("apartment", "apartment"), choice("house", "house")),
			tgbotapi.NewInlineKeyboardRow(choice("studio", "studio"), choice("commercial", "commercial")),
			tgbotapi.NewInlineKeyboardRow(choice("any_type", model.AnyValue)),
		))
	case wizard.StateLocation:
		var rows [][]tgbotapi.InlineKeyboardButton
		for i := 0; i < len(i18n.Neighborhoods); i += 2 {
			var row []tgbotapi.InlineKeyboardButton
			for _, n := range i18n.Neighborhoods[i:min(i+2, len(i18n.Neighborhoods))] {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(n.Label, callbackWizard+":"+n.Value))
			}
			rows = append(rows, row)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(choice("any_location", model.AnyValue)))
		b.replyWithMarkup(chatID, b.tr.T(lang, "choose_location"), newKeyboard(rows...))
	case wizard.StateBedrooms:
		var row []tgbotapi.InlineKeyboardButton
		for _, v := range wizard.BedroomChoices {
			if v == model.AnyValue {
				continue
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(v, callbackWizard+":"+v))
		}
		b.replyWithMarkup(chatID, b.tr.T(lang, "choose_bedrooms"), newKeyboard(
			row, tgbotapi.NewInlineKeyboardRow(choice("any_bedrooms", model.AnyValue)),
		))
	case wizard.StateMinPrice:
		b.reply(chatID, b.tr.T(lang, "enter_min_price"))
	case wizard.StateMaxPrice:
		b.reply(chatID, b.tr.T(lang, "enter_max_price"))
	case wizard.StateConfirmSave:
		text := DescribeCriteria(b.tr, lang, s.Criteria) + "\n\n" + b.tr.T(lang, "save_search_prompt")
		b.replyWithMarkup(chatID, text, newKeyboard(tgbotapi.NewInlineKeyboardRow(
			choice("save_search", "yes"), choice("dont_save", "no"),
		)))
	case wizard.StateName:
		b.reply(chatID, b.tr.T(lang, "enter_search_name"))
	case wizard.StateCadence:
		b.replyWithMarkup(chatID, b.tr.T(lang, "alert_frequency"), newKeyboard(
			tgbotapi.NewInlineKeyboardRow(choice("immediately", string(model.CadenceImmediate))),
			tgbotapi.NewInlineKeyboardRow(choice("daily", string(model.CadenceDaily))),
			tgbotapi.NewInlineKeyboardRow(choice("weekly", string(model.CadenceWeekly))),
		))
	}
}

func (b *Bot) finish(ctx context.Context, chatID int64, lang string, s *wizard.Session) {
	b.sessions.End(chatID)

	if !s.Save {
		b.runSearch(ctx, chatID, lang, s.Criteria)
		return
	}

	ss := s.Search()
	if err := filter.ValidateCriteria(ss.Criteria); err != nil {
		b.replyError(chatID, lang, "validate search", err)
		return
	}
	if err := b.store.CreateSearch(ctx, &ss); err != nil {
		b.replyError(chatID, lang, "create search", err)
		return
	}
	b.log.Info("search saved", "search_id", ss.ID, "owner_id", chatID, "cadence", ss.Cadence)
	b.reply(chatID, b.tr.T(lang, "search_saved"))
}

// runSearch shows the active listings currently matching c.
func (b *Bot) runSearch(ctx context.Context, chatID int64, lang string, c model.Criteria) {
	b.reply(chatID, b.tr.T(lang, "searching"))

	listings, err := b.index.FindListings(ctx, c, time.Time{})
	if err != nil {
		b.replyError(chatID, lang, "run search", err)
		return
	}
	if len(listings) == 0 {
		b.reply(chatID, b.tr.T(lang, "no_results"))
		return
	}

	var sb strings.Builder
	sb.WriteString(b.tr.T(lang, "found_properties", len(listings)))
	for i := range listings[:min(len(listings), maxResults)] {
		sb.WriteString("\n\n")
		sb.WriteString(b.render.Card(lang, model.CardFromListing(&listings[i])))
	}
	if more := len(listings) - maxResults; more > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(b.tr.T(lang, "and_more", more))
	}
	b.reply(chatID, sb.String())
}
