// Package wizard implements the step-by-step search builder used by the bot.
package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"propbot/internal/model"
)

// State is a step of the search builder.
type State string

// Builder steps in order. Done and Cancelled are terminal.
const (
	StateType        State = "type"
	StateLocation    State = "location"
	StateBedrooms    State = "bedrooms"
	StateMinPrice    State = "min_price"
	StateMaxPrice    State = "max_price"
	StateConfirmSave State = "confirm_save"
	StateName        State = "name"
	StateCadence     State = "cadence"
	StateDone        State = "done"
	StateCancelled   State = "cancelled"
)

const maxNameLen = 64

// Input errors. The caller re-prompts the same step.
var (
	ErrInvalidPrice = errors.New("invalid price")
	ErrInvalidRange = errors.New("max price must exceed min price")
	ErrInvalidName  = errors.New("invalid name")
	ErrUnexpected   = errors.New("input not expected in this step")
)

// PropertyTypes are the choices offered in the type step.
var PropertyTypes = []string{"apartment", "house", "studio", "commercial", model.AnyValue}

// BedroomChoices are the choices offered in the bedrooms step.
var BedroomChoices = []string{"1", "2", "3", "4", model.AnyValue}

// Session holds the answers collected so far for one chat.
type Session struct {
	ChatID   int64
	State    State
	Criteria model.Criteria
	Save     bool
	Name     string
	Cadence  model.Cadence
}

// Choose applies a button choice to the current step.
func (s *Session) Choose(value string) error {
	value = strings.TrimSpace(value)
	switch s.State {
	case StateType:
		if !contains(PropertyTypes, value) {
			return fmt.Errorf("%w: property type %q", ErrUnexpected, value)
		}
		s.Criteria.PropertyType = value
		s.State = StateLocation
	case StateLocation:
		if value == "" {
			return fmt.Errorf("%w: empty location", ErrUnexpected)
		}
		s.Criteria.Location = value
		s.State = StateBedrooms
	case StateBedrooms:
		if !contains(BedroomChoices, value) {
			return fmt.Errorf("%w: bedrooms %q", ErrUnexpected, value)
		}
		s.Criteria.Bedrooms = nil
		if value != model.AnyValue {
			n, _ := strconv.Atoi(value)
			s.Criteria.Bedrooms = &n
		}
		s.State = StateMinPrice
	case StateConfirmSave:
		switch value {
		case "yes":
			s.Save = true
			s.State = StateName
		case "no":
			s.Save = false
			s.State = StateDone
		default:
			return fmt.Errorf("%w: save %q", ErrUnexpected, value)
		}
	case StateCadence:
		c := model.Cadence(value)
		if !c.Valid() {
			return fmt.Errorf("%w: cadence %q", ErrUnexpected, value)
		}
		s.Cadence = c
		s.State = StateDone
	default:
		return fmt.Errorf("%w: choice in state %s", ErrUnexpected, s.State)
	}
	return nil
}

// Text applies free-form text to the current step.
func (s *Session) Text(input string) error {
	input = strings.TrimSpace(input)
	switch s.State {
	case StateMinPrice:
		v, err := ParsePrice(input)
		if err != nil {
			return err
		}
		s.Criteria.MinPrice = v
		s.State = StateMaxPrice
	case StateMaxPrice:
		v, err := ParsePrice(input)
		if err != nil {
			return err
		}
		if v > 0 && s.Criteria.MinPrice > 0 && v <= s.Criteria.MinPrice {
			return ErrInvalidRange
		}
		s.Criteria.MaxPrice = v
		s.State = StateConfirmSave
	case StateName:
		if input == "" || utf8.RuneCountInString(input) > maxNameLen {
			return ErrInvalidName
		}
		s.Name = input
		s.State = StateCadence
	default:
		return fmt.Errorf("%w: text in state %s", ErrUnexpected, s.State)
	}
	return nil
}

// Cancel abandons the session from any step.
func (s *Session) Cancel() {
	s.State = StateCancelled
}

// Finished reports whether the session reached a terminal state.
func (s *Session) Finished() bool {
	return s.State == StateDone || s.State == StateCancelled
}

// Search returns the saved search the session describes. It is only
// meaningful once the session is done with Save set.
func (s *Session) Search() model.SavedSearch {
	return model.SavedSearch{
		OwnerID:  s.ChatID,
		Name:     s.Name,
		Criteria: s.Criteria,
		Cadence:  s.Cadence,
		Enabled:  true,
	}
}

// ParsePrice parses a whole USD amount. Currency signs and thousands
// separators are ignored; 0 means no limit.
func ParsePrice(input string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", "USD", "", "usd", "", ",", "", ".", "", " ", "").Replace(input)
	if cleaned == "" {
		return 0, ErrInvalidPrice
	}
	v, err := strconv.ParseUint(cleaned, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	return float64(v), nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// Manager keeps at most one session per chat.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*Session)}
}

// Start begins a new session for chatID, replacing any previous one.
func (m *Manager) Start(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{ChatID: chatID, State: StateType}
	m.sessions[chatID] = s
	return s
}

// Get returns the session in progress for chatID.
func (m *Manager) Get(chatID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

// End removes the session of chatID and reports whether one existed.
func (m *Manager) End(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[chatID]
	delete(m.sessions, chatID)
	return ok
}
