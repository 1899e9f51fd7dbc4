package terminal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/cart"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCommitted = errors.New("session already committed")
)

type State int

const (
	StateOpen State = iota
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "open":
		*s = StateOpen
	case "committed":
		*s = StateCommitted
	default:
		return fmt.Errorf("unknown session state %q", b)
	}
	return nil
}

// Session is one operator's sale in progress at a terminal. It moves from
// Open to Committed exactly once; a committed session accepts no changes.
type Session struct {
	ID       string
	Operator string
	Terminal string
	OpenedAt time.Time

	mu            sync.Mutex
	state         State
	cart          *cart.Cart
	lastActive    time.Time
	transactionID string
}

func newSession(id, operator, terminal string, c *cart.Cart, now time.Time) *Session {
	return &Session{
		ID:         id,
		Operator:   operator,
		Terminal:   terminal,
		OpenedAt:   now,
		state:      StateOpen,
		cart:       c,
		lastActive: now,
	}
}

// mutate runs fn under the session lock if the session is still open.
func (s *Session) mutate(now time.Time, fn func(c *cart.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return ErrSessionCommitted
	}
	s.lastActive = now
	return fn(s.cart)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Summary is a point-in-time view of a session and its running totals.
type Summary struct {
	ID            string          `json:"id"`
	Operator      string          `json:"operator"`
	Terminal      string          `json:"terminal"`
	State         State           `json:"state"`
	OpenedAt      time.Time       `json:"openedAt"`
	Lines         []cart.Line     `json:"lines"`
	ItemCount     int             `json:"itemCount"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	TransactionID string          `json:"transactionId,omitempty"`
}

func (s *Session) summary(rate decimal.Decimal) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.cart.Lines()
	items := 0
	for _, l := range lines {
		items += l.Quantity
	}
	return Summary{
		ID:            s.ID,
		Operator:      s.Operator,
		Terminal:      s.Terminal,
		State:         s.state,
		OpenedAt:      s.OpenedAt,
		Lines:         lines,
		ItemCount:     items,
		TaxRate:       rate,
		Subtotal:      s.cart.Subtotal(),
		Tax:           s.cart.Tax(rate),
		Total:         s.cart.Total(rate),
		TransactionID: s.transactionID,
	}
}
