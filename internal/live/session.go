// Package live hosts interactive browsing sessions over a websocket. Each
// connection owns a filter.State, applies the intents the browser sends, and
// pushes the recomputed product list after every committed change.
package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/artiscatalog/internal/filter"
	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/pkg/models"
)

// Intent types accepted from the browser.
const (
	IntentToggleCatalog    = "toggle_catalog"
	IntentToggleCategory   = "toggle_category"
	IntentSetShowUnmatched = "set_show_unmatched"
	IntentSetViewMode      = "set_view_mode"
	IntentSetSortBy        = "set_sort_by"
	IntentToggleSortOrder  = "toggle_sort_order"
	IntentReset            = "reset"
	IntentKeystroke        = "keystroke"
	IntentClearSearch      = "clear_search"
)

// Message types pushed to the browser.
const (
	MessageUpdate = "update"
	MessageError  = "error"
)

// ErrUnknownIntent is returned for an intent type the session does not know.
var ErrUnknownIntent = errors.New("unknown intent")

// Intent is one user action. Value is a JSON string or boolean depending on
// the type, and absent for the parameterless intents.
type Intent struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Message is pushed to the browser. Update messages embed the full state and
// result; error messages carry the rejected intent and the reason.
type Message struct {
	Type string `json:"type"`
	*Update
	Intent string `json:"intent,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Update is the recomputed view after a committed change.
type Update struct {
	State         filter.Snapshot  `json:"state"`
	ActiveFilters int              `json:"activeFilters"`
	Count         int              `json:"count"`
	Products      []models.Product `json:"products"`
}

// Querier runs the filter pipeline over the catalog.
type Querier interface {
	Query(snap filter.Snapshot) ([]models.Product, error)
}

// Session applies intents to one client's state. Updates are delivered through
// the send callback in the order the changes were committed. A Session is
// safe for concurrent use; the debounced search commit arrives on a timer
// goroutine.
type Session struct {
	engine   Querier
	send     func(Message)
	logger   *zap.Logger
	metrics  *metrics.Metrics
	pageSize int

	window    time.Duration
	afterFunc filter.AfterFunc
	debouncer *filter.Debouncer

	mu       sync.Mutex
	state    *filter.State
	awaiting bool
	closed   bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDebounce sets the quiescence window for keystrokes.
func WithDebounce(window time.Duration) SessionOption {
	return func(s *Session) { s.window = window }
}

// WithSessionAfterFunc replaces the debounce timer source.
func WithSessionAfterFunc(f filter.AfterFunc) SessionOption {
	return func(s *Session) { s.afterFunc = f }
}

// WithSessionLogger sets the logger used for pipeline failures.
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithSessionMetrics counts intents in m.
func WithSessionMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithPageSize caps the products carried per update. Count always reports the
// full result size. Zero means no cap.
func WithPageSize(n int) SessionOption {
	return func(s *Session) { s.pageSize = n }
}

// NewSession returns a session over state. send must not call back into the
// session.
func NewSession(engine Querier, state *filter.State, send func(Message), opts ...SessionOption) *Session {
	s := &Session{
		engine: engine,
		state:  state,
		send:   send,
		logger: zap.NewNop(),
		window: filter.DefaultDebounceWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	var dopts []filter.DebounceOption
	if s.afterFunc != nil {
		dopts = append(dopts, filter.WithAfterFunc(s.afterFunc))
	}
	s.debouncer = filter.NewDebouncer(s.window, s.commitSearch, dopts...)
	return s
}

// Start pushes the initial state.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushLocked()
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() filter.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// Handle applies one intent. Keystrokes only schedule a search commit; every
// other valid intent commits and pushes an update immediately. An invalid
// intent pushes an error message and leaves the state untouched.
func (s *Session) Handle(in Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	if err := s.applyLocked(in); err != nil {
		s.metrics.IncIntent("invalid")
		s.send(Message{Type: MessageError, Intent: in.Type, Error: err.Error()})
		return err
	}
	s.metrics.IncIntent(in.Type)
	if in.Type != IntentKeystroke {
		s.pushLocked()
	}
	return nil
}

// Close cancels a pending search commit. No messages are sent afterwards.
func (s *Session) Close() {
	s.debouncer.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) applyLocked(in Intent) error {
	switch in.Type {
	case IntentToggleCatalog:
		v, err := stringValue(in)
		if err != nil {
			return err
		}
		s.state.ToggleCatalog(models.Catalog(v))
	case IntentToggleCategory:
		v, err := stringValue(in)
		if err != nil {
			return err
		}
		s.state.ToggleCategory(v)
	case IntentSetShowUnmatched:
		var v bool
		if err := json.Unmarshal(in.Value, &v); err != nil {
			return fmt.Errorf("%s expects a boolean value", in.Type)
		}
		s.state.SetShowUnmatched(v)
	case IntentSetViewMode:
		v, err := stringValue(in)
		if err != nil {
			return err
		}
		m, err := filter.ParseViewMode(v)
		if err != nil {
			return err
		}
		s.state.SetViewMode(m)
	case IntentSetSortBy:
		v, err := stringValue(in)
		if err != nil {
			return err
		}
		k, err := filter.ParseSortKey(v)
		if err != nil {
			return err
		}
		s.state.SetSortBy(k)
	case IntentToggleSortOrder:
		s.state.ToggleSortOrder()
	case IntentReset:
		s.debouncer.Stop()
		s.awaiting = false
		s.state.Reset()
	case IntentKeystroke:
		v, err := stringValue(in)
		if err != nil {
			return err
		}
		s.awaiting = true
		s.debouncer.Push(v)
	case IntentClearSearch:
		s.debouncer.Stop()
		s.awaiting = false
		s.state.SetSearchQuery("")
	default:
		return fmt.Errorf("%w %q", ErrUnknownIntent, in.Type)
	}
	return nil
}

// commitSearch is the debouncer's commit callback. A commit that lost the race
// with clear_search or reset is dropped.
func (s *Session) commitSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.awaiting {
		return
	}
	_, s.awaiting = s.debouncer.Pending()
	s.state.SetSearchQuery(q)
	s.pushLocked()
}

func (s *Session) pushLocked() {
	snap := s.state.Snapshot()
	products, err := s.engine.Query(snap)
	if err != nil {
		s.logger.Error("pipeline failed", zap.Error(err))
		s.send(Message{Type: MessageError, Error: "catalog unavailable"})
		return
	}
	count := len(products)
	if s.pageSize > 0 && len(products) > s.pageSize {
		products = products[:s.pageSize]
	}
	if products == nil {
		products = []models.Product{}
	}
	s.send(Message{
		Type: MessageUpdate,
		Update: &Update{
			State:         snap,
			ActiveFilters: s.state.ActiveFilterCount(),
			Count:         count,
			Products:      products,
		},
	})
}

func stringValue(in Intent) (string, error) {
	var v string
	if err := json.Unmarshal(in.Value, &v); err != nil {
		return "", fmt.Errorf("%s expects a string value", in.Type)
	}
	return v, nil
}
