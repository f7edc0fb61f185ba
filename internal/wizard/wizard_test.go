package wizard

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"propbot/internal/model"
)

func intPtr(v int) *int { return &v }

func TestSessionSaveFlow(t *testing.T) {
	s := NewManager().Start(42)

	steps := []struct {
		choice string
		text   string
		want   State
	}{
		{choice: "apartment", want: StateLocation},
		{choice: "palermo", want: StateBedrooms},
		{choice: "2", want: StateMinPrice},
		{text: "100.000", want: StateMaxPrice},
		{text: "$200,000", want: StateConfirmSave},
		{choice: "yes", want: StateName},
		{text: "  2BR Palermo  ", want: StateCadence},
		{choice: "daily", want: StateDone},
	}
	for _, st := range steps {
		var err error
		if st.choice != "" {
			err = s.Choose(st.choice)
		} else {
			err = s.Text(st.text)
		}
		if err != nil {
			t.Fatalf("step to %s: %v", st.want, err)
		}
		if s.State != st.want {
			t.Fatalf("state = %s, want %s", s.State, st.want)
		}
	}

	want := model.SavedSearch{
		OwnerID: 42,
		Name:    "2BR Palermo",
		Criteria: model.Criteria{
			PropertyType: "apartment",
			Location:     "palermo",
			Bedrooms:     intPtr(2),
			MinPrice:     100000,
			MaxPrice:     200000,
		},
		Cadence: model.CadenceDaily,
		Enabled: true,
	}
	if diff := cmp.Diff(want, s.Search()); diff != "" {
		t.Errorf("search mismatch (-want +got):\n%s", diff)
	}
	if !s.Finished() {
		t.Error("Finished() = false, want true")
	}
}

func TestSessionWithoutSaving(t *testing.T) {
	s := &Session{ChatID: 1, State: StateType}
	for _, c := range []string{"any", "any", "any"} {
		if err := s.Choose(c); err != nil {
			t.Fatalf("Choose(%q): %v", c, err)
		}
	}
	if err := s.Text("0"); err != nil {
		t.Fatalf("min price: %v", err)
	}
	if err := s.Text("0"); err != nil {
		t.Fatalf("max price: %v", err)
	}
	if err := s.Choose("no"); err != nil {
		t.Fatalf("Choose(no): %v", err)
	}
	if s.State != StateDone || s.Save {
		t.Errorf("state=%s save=%v, want done/false", s.State, s.Save)
	}
	if s.Criteria.Bedrooms != nil {
		t.Errorf("bedrooms = %v, want nil", *s.Criteria.Bedrooms)
	}
}

func TestSessionRejectsInput(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		min     float64
		choice  string
		text    string
		wantErr error
	}{
		{name: "unknown type", state: StateType, choice: "castle", wantErr: ErrUnexpected},
		{name: "bedrooms out of range", state: StateBedrooms, choice: "9", wantErr: ErrUnexpected},
		{name: "text during choice step", state: StateLocation, text: "palermo", wantErr: ErrUnexpected},
		{name: "choice during text step", state: StateMinPrice, choice: "100", wantErr: ErrUnexpected},
		{name: "letters as price", state: StateMinPrice, text: "cheap", wantErr: ErrInvalidPrice},
		{name: "negative price", state: StateMinPrice, text: "-5", wantErr: ErrInvalidPrice},
		{name: "max below min", state: StateMaxPrice, min: 200000, text: "100000", wantErr: ErrInvalidRange},
		{name: "max equal to min", state: StateMaxPrice, min: 200000, text: "200000", wantErr: ErrInvalidRange},
		{name: "empty name", state: StateName, text: "   ", wantErr: ErrInvalidName},
		{name: "long name", state: StateName, text: string(make([]byte, 65)), wantErr: ErrInvalidName},
		{name: "unknown cadence", state: StateCadence, choice: "hourly", wantErr: ErrUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{State: tt.state, Criteria: model.Criteria{MinPrice: tt.min}}
			var err error
			if tt.choice != "" {
				err = s.Choose(tt.choice)
			} else {
				err = s.Text(tt.text)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if s.State != tt.state {
				t.Errorf("state moved to %s on invalid input", s.State)
			}
		})
	}
}

func TestMaxPriceOpenWhenZero(t *testing.T) {
	s := &Session{State: StateMaxPrice, Criteria: model.Criteria{MinPrice: 50000}}
	if err := s.Text("0"); err != nil {
		t.Fatalf("Text(0): %v", err)
	}
	if s.Criteria.MaxPrice != 0 || s.State != StateConfirmSave {
		t.Errorf("max=%v state=%s, want 0/confirm_save", s.Criteria.MaxPrice, s.State)
	}
}

func TestCancel(t *testing.T) {
	m := NewManager()
	s := m.Start(7)
	s.Cancel()
	if !s.Finished() {
		t.Error("cancelled session not finished")
	}
	if !m.End(7) {
		t.Error("End() = false for existing session")
	}
	if m.End(7) {
		t.Error("End() = true after session was removed")
	}
	if _, ok := m.Get(7); ok {
		t.Error("Get() found a removed session")
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "150000", want: 150000},
		{in: "150.000", want: 150000},
		{in: "USD 150,000", want: 150000},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePrice(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
