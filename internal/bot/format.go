package bot

import (
	"strconv"
	"strings"

	"propbot/internal/i18n"
	"propbot/internal/model"
)

// FormatSearch renders a saved search for the /searches list.
func FormatSearch(tr *i18n.Translator, lang string, ss model.SavedSearch) string {
	status := "notifications_on"
	if !ss.Enabled {
		status = "notifications_off"
	}
	var b strings.Builder
	b.WriteString("📌 ")
	b.WriteString(ss.Name)
	b.WriteString(" (")
	b.WriteString(cadenceLabel(tr, lang, ss.Cadence))
	b.WriteString(")\n")
	b.WriteString(DescribeCriteria(tr, lang, ss.Criteria))
	b.WriteString("\n")
	b.WriteString(tr.T(lang, status))
	return b.String()
}

// DescribeCriteria renders the localized search summary.
func DescribeCriteria(tr *i18n.Translator, lang string, c model.Criteria) string {
	return tr.T(lang, "search_summary",
		typeLabel(tr, lang, c.PropertyType),
		locationLabel(tr, lang, c.Location),
		priceRange(tr, lang, c.MinPrice, c.MaxPrice),
		bedroomsLabel(tr, lang, c.Bedrooms),
	)
}

func typeLabel(tr *i18n.Translator, lang, t string) string {
	if t == "" || t == model.AnyValue {
		return tr.T(lang, "any")
	}
	return tr.T(lang, t)
}

func locationLabel(tr *i18n.Translator, lang, loc string) string {
	if loc == "" || loc == model.AnyValue {
		return tr.T(lang, "any")
	}
	for _, n := range i18n.Neighborhoods {
		if n.Value == loc {
			return n.Label
		}
	}
	return loc
}

func priceRange(tr *i18n.Translator, lang string, lo, hi float64) string {
	switch {
	case lo <= 0 && hi <= 0:
		return tr.T(lang, "no_limit")
	case hi <= 0:
		return "≥ " + i18n.FormatPrice(lang, lo, "USD")
	case lo <= 0:
		return "≤ " + i18n.FormatPrice(lang, hi, "USD")
	}
	return i18n.FormatPrice(lang, lo, "USD") + " - " + i18n.FormatPrice(lang, hi, "USD")
}

func bedroomsLabel(tr *i18n.Translator, lang string, n *int) string {
	if n == nil {
		return tr.T(lang, "any")
	}
	return strconv.Itoa(*n)
}

func cadenceLabel(tr *i18n.Translator, lang string, c model.Cadence) string {
	switch c {
	case model.CadenceImmediate:
		return tr.T(lang, "immediately")
	case model.CadenceWeekly:
		return tr.T(lang, "weekly")
	}
	return tr.T(lang, "daily")
}
