// Package session tracks keystroke-driven search sessions. Each session owns
// its state and a debouncer; when input settles the search runs and the
// outcome is pushed to the session's SSE subscribers.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/starford/bomberos/internal/apperr"
	"github.com/starford/bomberos/internal/debounce"
	"github.com/starford/bomberos/internal/observability"
	"github.com/starford/bomberos/internal/sse"
	"github.com/starford/bomberos/internal/toolkit"
)

// State is the observable state of one search session.
type State struct {
	Query     string `json:"query"`
	IsMobile  bool   `json:"is_mobile"`
	IsLoading bool   `json:"is_loading"`
}

// Searcher runs a catalogue search.
type Searcher interface {
	Search(ctx context.Context, query, source string) toolkit.SearchOutcome
}

// Publisher delivers events to SSE subscribers.
type Publisher interface {
	Publish(event sse.Event)
}

// HiddenPayload is the data of a search.hidden event.
type HiddenPayload struct {
	Query string `json:"query"`
}

// Default per-session keystroke limits.
const (
	DefaultInputRate  = 20
	DefaultInputBurst = 40
)

// Defaults for session lifetime.
const (
	DefaultIdleTTL     = 30 * time.Minute
	DefaultMaxSessions = 10000
)

type session struct {
	mu        sync.Mutex
	state     State
	debouncer *debounce.Debouncer[string]
	limiter   *rate.Limiter
	lastSeen  time.Time
}

func (s *session) snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Manager owns all live sessions.
type Manager struct {
	searcher Searcher
	pub      Publisher
	clock    clockwork.Clock
	delay    time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger

	inputRate  rate.Limit
	inputBurst int

	idleTTL     time.Duration
	maxSessions int

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock that drives the debouncers.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithDelay overrides the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.delay = d
	}
}

// WithInputRate limits keystrokes per session to perSecond with the given burst.
func WithInputRate(perSecond float64, burst int) Option {
	return func(m *Manager) {
		m.inputRate = rate.Limit(perSecond)
		m.inputBurst = burst
	}
}

// WithIdleTTL sets how long a session may go without input before EvictIdle
// drops it.
func WithIdleTTL(d time.Duration) Option {
	return func(m *Manager) {
		m.idleTTL = d
	}
}

// WithMaxSessions caps the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

// WithMetrics tracks the live session count.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a session manager.
func NewManager(searcher Searcher, pub Publisher, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		searcher: searcher,
		pub:      pub,
		clock:    clockwork.NewRealClock(),
		delay:    debounce.DefaultDelay,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),

		inputRate:  DefaultInputRate,
		inputBurst: DefaultInputBurst,

		idleTTL:     DefaultIdleTTL,
		maxSessions: DefaultMaxSessions,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ValidateID checks a session identifier.
func ValidateID(id string) error {
	err := validation.Validate(id,
		validation.Required,
		validation.Length(1, 64),
	)
	if err != nil {
		return fmt.Errorf("session: id: %v: %w", err, apperr.ErrInvalidInput)
	}
	return nil
}

// Input records the latest query of a session, creating the session on first
// use, and schedules a debounced search. It returns the updated state.
func (m *Manager) Input(id, query string, isMobile bool) (State, error) {
	if err := ValidateID(id); err != nil {
		return State{}, err
	}

	s, err := m.getOrCreate(id)
	if err != nil {
		return State{}, err
	}
	if !s.limiter.AllowN(m.clock.Now(), 1) {
		return s.snapshot(), fmt.Errorf("session %q: %w", id, apperr.ErrRateLimited)
	}

	s.mu.Lock()
	s.state.Query = query
	s.state.IsMobile = isMobile
	s.lastSeen = m.clock.Now()
	state := s.state
	s.mu.Unlock()

	s.debouncer.Trigger(query)
	return state, nil
}

// Create starts a session under a fresh random ID.
func (m *Manager) Create(isMobile bool) (string, State, error) {
	id := uuid.NewString()
	s, err := m.getOrCreate(id)
	if err != nil {
		return "", State{}, err
	}
	s.mu.Lock()
	s.state.IsMobile = isMobile
	state := s.state
	s.mu.Unlock()
	return id, state, nil
}

func (m *Manager) getOrCreate(id string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("session: manager is shut down")
	}
	s, ok := m.sessions[id]
	if !ok {
		if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
			return nil, fmt.Errorf("session: %d sessions open: %w", len(m.sessions), apperr.ErrRateLimited)
		}
		s = &session{
			limiter:  rate.NewLimiter(m.inputRate, m.inputBurst),
			lastSeen: m.clock.Now(),
		}
		s.debouncer = debounce.New(m.clock, m.delay, func(q string) { m.run(id, s, q) })
		m.sessions[id] = s
		m.setGauge()
	}
	return s, nil
}

// State returns a session's current state.
func (m *Manager) State(id string) (State, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return State{}, fmt.Errorf("session %q: %w", id, apperr.ErrNotFound)
	}
	return s.snapshot(), nil
}

// Close cancels a session's pending search and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.setGauge()
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %q: %w", id, apperr.ErrNotFound)
	}
	s.debouncer.Stop()
	return nil
}

// EvictIdle closes every session that has had no input for the idle TTL and
// returns how many were closed.
func (m *Manager) EvictIdle() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.clock.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var idle []*session
	for id, s := range m.sessions {
		s.mu.Lock()
		expired := !s.lastSeen.After(cutoff)
		s.mu.Unlock()
		if expired {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	if len(idle) > 0 {
		m.setGauge()
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.debouncer.Stop()
	}
	return len(idle)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops every session. Later Input calls fail.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.setGauge()
	m.mu.Unlock()

	m.cancel()
	for _, s := range sessions {
		s.debouncer.Stop()
	}
}

func (m *Manager) run(id string, s *session, query string) {
	s.mu.Lock()
	s.state.IsLoading = true
	s.mu.Unlock()

	out := m.searcher.Search(m.ctx, query, toolkit.SourceSession)

	event := sse.Event{Type: sse.TypeSearchResults, Session: id, Data: out}
	if out.Hidden {
		event = sse.Event{Type: sse.TypeSearchHidden, Session: id, Data: HiddenPayload{Query: query}}
	}

	s.mu.Lock()
	s.state.IsLoading = false
	s.mu.Unlock()

	m.pub.Publish(event)

	m.logger.Debug("session search",
		slog.String("session", id),
		slog.String("query", query),
		slog.Bool("hidden", out.Hidden),
		slog.Int("results", len(out.Results)),
	)
}

// setGauge must be called with m.mu held.
func (m *Manager) setGauge() {
	if m.metrics == nil {
		return
	}
	m.metrics.Sessions.Set(float64(len(m.sessions)))
}
