package i18n

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"propbot/internal/model"
)

func requireContains(t *testing.T, text, substr string) {
	t.Helper()
	if !strings.Contains(text, substr) {
		t.Errorf("expected text to contain %q, got:\n%s", substr, text)
	}
}

func TestTranslate(t *testing.T) {
	tr := New("es")

	tests := []struct {
		name string
		lang string
		key  string
		args []any
		want string
	}{
		{name: "spanish", lang: "es", key: "alert_deleted", want: "✅ Alerta eliminada"},
		{name: "english", lang: "en", key: "alert_deleted", want: "✅ Alert deleted"},
		{name: "portuguese", lang: "pt", key: "alert_deleted", want: "✅ Alerta excluído"},
		{name: "russian", lang: "ru", key: "alert_deleted", want: "✅ Оповещение удалено"},
		{name: "unknown language falls back", lang: "fr", key: "alert_deleted", want: "✅ Alerta eliminada"},
		{name: "unknown key returns key", lang: "en", key: "no_such_key", want: "no_such_key"},
		{name: "formats args", lang: "en", key: "found_properties", args: []any{3}, want: "🏠 Found 3 properties:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tr.T(tt.lang, tt.key, tt.args...)); diff != "" {
				t.Errorf("T() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMessageTablesHaveSameKeys(t *testing.T) {
	for lang, table := range messages {
		for key := range messages["en"] {
			if _, ok := table[key]; !ok {
				t.Errorf("%s is missing %q", lang, key)
			}
		}
		for key := range table {
			if _, ok := messages["en"][key]; !ok {
				t.Errorf("en is missing %q (present in %s)", key, lang)
			}
		}
	}
}

func TestNewFallsBackToEnglish(t *testing.T) {
	tr := New("fr")
	if diff := cmp.Diff("en", tr.Default()); diff != "" {
		t.Errorf("Default() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"en", "es", "pt", "ru"}, tr.Languages()); diff != "" {
		t.Errorf("Languages() mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		lang     string
		amount   float64
		currency string
		want     string
	}{
		{"en", 150000, "USD", "USD 150,000"},
		{"es", 150000, "USD", "USD 150.000"},
		{"es", 120000000, "ARS", "ARS 120.000.000"},
		{"pt", 150000, "USD", "USD 150.000"},
		{"ru", 150000, "USD", "USD 150\u00a0000"},
		{"en", 950, "", "950"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatPrice(tt.lang, tt.amount, tt.currency)); diff != "" {
				t.Errorf("FormatPrice() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

var card = model.ListingCard{
	ListingID: 7,
	Title:     "Departamento 3 ambientes",
	URL:       "https://zonaprop.example/7",
	Price:     150000,
	Currency:  "USD",
	Location:  "Palermo",
	Bedrooms:  2,
	Area:      65,
}

func TestRenderNewListing(t *testing.T) {
	r := NewRenderer(New("es"))
	got, err := r.Format(model.Payload{
		Type: model.NotifyNewListing, Lang: "en", SearchName: "2BR Palermo", Items: []model.ListingCard{card},
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := "🆕 New property matching your search '2BR Palermo'!\n\n" +
		"Departamento 3 ambientes\n" +
		"💰 USD 150,000 | 🛏️ 2 | 📐 65 m²\n" +
		"📍 Palermo\n" +
		"https://zonaprop.example/7"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Format() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderPriceChange(t *testing.T) {
	r := NewRenderer(New("es"))
	got, err := r.Format(model.Payload{
		Type: model.NotifyPriceChange, Lang: "es", SearchName: "Palermo", Items: []model.ListingCard{card},
		Change: &model.PriceChange{OldPrice: 160000, OldCurrency: "USD", Percentage: -6.25},
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	requireContains(t, got, "📉 ¡Bajó el precio en tu búsqueda 'Palermo'!")
	requireContains(t, got, "💰 USD 150.000")
	requireContains(t, got, "Antes: USD 160.000 (-6.25%)")
}

func TestRenderSummary(t *testing.T) {
	r := NewRenderer(New("es"))
	items := make([]model.ListingCard, 10)
	for i := range items {
		items[i] = card
	}
	items[3].Title = ""
	items[4].Price = 0

	got, err := r.Format(model.Payload{
		Type: model.NotifyDailySummary, Lang: "es", SearchName: "Palermo", Items: items, Total: 12,
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	requireContains(t, got, "📊 Resumen diario - Palermo")
	requireContains(t, got, "Nuevas propiedades en las últimas 24 horas: 12")
	requireContains(t, got, "10. Departamento 3 ambientes")
	requireContains(t, got, "4. Sin título")
	requireContains(t, got, "Consultar precio")
	if !strings.HasSuffix(got, "... y 2 propiedades más") {
		t.Errorf("expected remainder line at the end, got:\n%s", got)
	}

	weekly, err := r.Format(model.Payload{Type: model.NotifyWeeklySummary, Lang: "en", SearchName: "S", Items: items[:2], Total: 2})
	if err != nil {
		t.Fatalf("format weekly: %v", err)
	}
	requireContains(t, weekly, "📊 Weekly summary - S")
	if strings.Contains(weekly, "more properties") {
		t.Errorf("unexpected remainder line:\n%s", weekly)
	}
}

func TestRenderRejectsIncompletePayload(t *testing.T) {
	r := NewRenderer(New("en"))
	tests := []struct {
		name    string
		payload model.Payload
	}{
		{name: "new listing without item", payload: model.Payload{Type: model.NotifyNewListing}},
		{name: "price change without change", payload: model.Payload{Type: model.NotifyPriceChange, Items: []model.ListingCard{card}}},
		{name: "unknown type", payload: model.Payload{Type: "bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Format(tt.payload); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
