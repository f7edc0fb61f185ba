package bot

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"propbot/internal/i18n"
	"propbot/internal/model"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data       string
		wantAction string
		wantValue  string
		wantOK     bool
	}{
		{"run:12", "run", "12", true},
		{"wz:puerto_madero", "wz", "puerto_madero", true},
		{"lang:es", "lang", "es", true},
		{"nocolon", "", "", false},
		{":12", "", "", false},
		{"run:", "", "", false},
	}
	for _, tt := range tests {
		action, value, ok := ParseCallback(tt.data)
		if action != tt.wantAction || value != tt.wantValue || ok != tt.wantOK {
			t.Errorf("ParseCallback(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.data, action, value, ok, tt.wantAction, tt.wantValue, tt.wantOK)
		}
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{" 7 ", 7, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDescribeCriteria(t *testing.T) {
	tr := i18n.New("en")
	three := 3

	tests := []struct {
		name string
		lang string
		c    model.Criteria
		want string
	}{
		{
			name: "everything open",
			lang: "en",
			c:    model.Criteria{PropertyType: "any", Location: "any"},
			want: "📋 Search Summary:\n• Type: any\n• Location: any\n• Price: no limit\n• Bedrooms: any",
		},
		{
			name: "fully specified",
			lang: "en",
			c:    model.Criteria{PropertyType: "apartment", Location: "palermo", Bedrooms: &three, MinPrice: 100000, MaxPrice: 250000},
			want: "📋 Search Summary:\n• Type: 🏢 Apartment\n• Location: 🌳 Palermo\n• Price: USD 100,000 - USD 250,000\n• Bedrooms: 3",
		},
		{
			name: "max only in spanish",
			lang: "es",
			c:    model.Criteria{PropertyType: "house", Location: "nuñez", MaxPrice: 200000},
			want: "📋 Resumen de búsqueda:\n• Tipo: 🏡 Casa\n• Ubicación: nuñez\n• Precio: ≤ USD 200.000\n• Dormitorios: cualquiera",
		},
		{
			name: "min only",
			lang: "en",
			c:    model.Criteria{MinPrice: 50000},
			want: "📋 Search Summary:\n• Type: any\n• Location: any\n• Price: ≥ USD 50,000\n• Bedrooms: any",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, DescribeCriteria(tr, tt.lang, tt.c)); diff != "" {
				t.Errorf("DescribeCriteria mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatSearch(t *testing.T) {
	tr := i18n.New("en")
	ss := model.SavedSearch{
		Name:     "Weekly houses",
		Criteria: model.Criteria{PropertyType: "house"},
		Cadence:  model.CadenceWeekly,
		Enabled:  false,
	}
	got := FormatSearch(tr, "en", ss)
	for _, want := range []string{"📌 Weekly houses (📆 Weekly Summary)", "🏡 House", "🔕 Notifications OFF"} {
		requireContains(t, got, want)
	}
}
