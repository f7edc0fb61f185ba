// Package i18n holds localized message texts and renders notifications.
package i18n

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"propbot/internal/model"
)

// Translator looks up message texts by language, falling back to a default
// language and finally to the key itself.
type Translator struct {
	fallback string
}

// New creates a Translator. An unsupported fallback is replaced by "en".
func New(fallback string) *Translator {
	if _, ok := messages[fallback]; !ok {
		fallback = "en"
	}
	return &Translator{fallback: fallback}
}

// Default returns the fallback language.
func (t *Translator) Default() string {
	return t.fallback
}

// Supported reports whether lang has a message table.
func (t *Translator) Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// Languages returns the supported language codes in sorted order.
func (t *Translator) Languages() []string {
	langs := make([]string, 0, len(messages))
	for l := range messages {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// T returns the text for key in lang, formatted with args when given.
func (t *Translator) T(lang, key string, args ...any) string {
	text, ok := messages[lang][key]
	if !ok {
		text, ok = messages[t.fallback][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// FormatPrice renders an amount with the thousands separator used in lang.
func FormatPrice(lang string, amount float64, currency string) string {
	layout := "#,###."
	switch lang {
	case "es", "pt":
		layout = "#.###,"
	case "ru":
		layout = "#\u00a0###,"
	}
	return strings.TrimSpace(currency + " " + humanize.FormatFloat(layout, amount))
}

// Renderer turns notification payloads into message text.
type Renderer struct {
	tr *Translator
}

// NewRenderer creates a Renderer backed by tr.
func NewRenderer(tr *Translator) *Renderer {
	return &Renderer{tr: tr}
}

// Format renders p in the language recorded in the payload.
func (r *Renderer) Format(p model.Payload) (string, error) {
	lang := p.Lang
	if !r.tr.Supported(lang) {
		lang = r.tr.Default()
	}

	switch p.Type {
	case model.NotifyNewListing:
		if len(p.Items) == 0 {
			return "", fmt.Errorf("new listing payload has no items")
		}
		return r.tr.T(lang, "new_property_alert", p.SearchName) + "\n\n" + r.Card(lang, p.Items[0]), nil

	case model.NotifyPriceChange:
		if len(p.Items) == 0 || p.Change == nil {
			return "", fmt.Errorf("price change payload is incomplete")
		}
		key := "price_rise_alert"
		if p.Change.Percentage < 0 {
			key = "price_drop_alert"
		}
		var b strings.Builder
		b.WriteString(r.tr.T(lang, key, p.SearchName))
		b.WriteString("\n\n")
		b.WriteString(r.Card(lang, p.Items[0]))
		b.WriteString("\n")
		b.WriteString(r.tr.T(lang, "price_before",
			FormatPrice(lang, p.Change.OldPrice, p.Change.OldCurrency),
			fmt.Sprintf("%+.2f%%", p.Change.Percentage)))
		return b.String(), nil

	case model.NotifyDailySummary, model.NotifyWeeklySummary:
		return r.summary(lang, p), nil
	}
	return "", fmt.Errorf("unknown notification type %q", p.Type)
}

func (r *Renderer) summary(lang string, p model.Payload) string {
	titleKey, countKey := "daily_summary_title", "summary_count_daily"
	if p.Type == model.NotifyWeeklySummary {
		titleKey, countKey = "weekly_summary_title", "summary_count_weekly"
	}

	var b strings.Builder
	b.WriteString(r.tr.T(lang, titleKey, p.SearchName))
	b.WriteString("\n\n")
	b.WriteString(r.tr.T(lang, countKey, p.Total))
	b.WriteString("\n")
	for i, item := range p.Items {
		fmt.Fprintf(&b, "\n%d. %s\n   💰 %s | 📍 %s\n   %s\n",
			i+1, r.title(lang, item), r.price(lang, item), orNA(item.Location), item.URL)
	}
	if more := p.Total - len(p.Items); more > 0 {
		b.WriteString("\n")
		b.WriteString(r.tr.T(lang, "and_more", more))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Card renders a single listing.
func (r *Renderer) Card(lang string, c model.ListingCard) string {
	var b strings.Builder
	b.WriteString(r.title(lang, c))
	b.WriteString("\n💰 ")
	b.WriteString(r.price(lang, c))
	if c.Bedrooms > 0 {
		fmt.Fprintf(&b, " | 🛏️ %d", c.Bedrooms)
	}
	if c.Area > 0 {
		fmt.Fprintf(&b, " | 📐 %s m²", strconv.FormatFloat(c.Area, 'f', -1, 64))
	}
	if c.Location != "" {
		b.WriteString("\n📍 ")
		b.WriteString(c.Location)
	}
	if c.URL != "" {
		b.WriteString("\n")
		b.WriteString(c.URL)
	}
	return b.String()
}

func (r *Renderer) title(lang string, c model.ListingCard) string {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return r.tr.T(lang, "untitled")
	}
	if runes := []rune(title); len(runes) > 60 {
		return string(runes[:60]) + "..."
	}
	return title
}

func (r *Renderer) price(lang string, c model.ListingCard) string {
	if c.Price <= 0 {
		return r.tr.T(lang, "price_on_request")
	}
	return FormatPrice(lang, c.Price, c.Currency)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
