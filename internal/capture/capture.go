// Package capture owns the per-session fault log and the interceptor
// lifecycle. A Manager is an explicit, constructible context object: parallel
// scenario runs each build their own manager instead of sharing ambient
// process state.
package capture

import (
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/faultwatch/internal/classify"
	"git.home.luguber.info/inful/faultwatch/internal/fault"
	"git.home.luguber.info/inful/faultwatch/internal/metrics"
)

// RawEvent is the normalized input interceptors hand to Capture. Interceptors
// normalize eagerly at their boundary; the original loosely-typed fault shape
// never leaks past it.
type RawEvent struct {
	Source    fault.SourceType
	Message   string
	Stack     string
	Context   map[string]any
	Timestamp time.Time // zero means "now"
}

// Sink is the only capability interceptors hold: they may append observations,
// never read or mutate the session log directly.
type Sink interface {
	Capture(ev RawEvent)
}

// Interceptor is one fault-surface observer whose lifecycle the manager owns.
type Interceptor interface {
	Name() string
	// Attach starts forwarding observations to the sink.
	Attach(sink Sink) error
	// Detach stops forwarding and releases the sink reference. Must be safe
	// to call while an observation is mid-flight.
	Detach()
}

// Options selects which fault surfaces a session observes. All capture flags
// default to true via DefaultOptions.
type Options struct {
	CaptureLogErrors           bool
	CaptureNetworkErrors       bool
	CaptureUnhandledRejections bool
	CaptureAgentErrors         bool

	// SuppressPanics stops the task runner from re-panicking after capturing
	// a recovered panic. Default propagation is preserved unless this is set.
	SuppressPanics bool
}

// DefaultOptions enables every fault surface.
func DefaultOptions() Options {
	return Options{
		CaptureLogErrors:           true,
		CaptureNetworkErrors:       true,
		CaptureUnhandledRejections: true,
		CaptureAgentErrors:         true,
	}
}

// State tracks the manager lifecycle: Uninitialized -> Active -> TornDown.
// TornDown is terminal.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// Classifier assigns a category and severity to a record. classify.Classifier
// satisfies this.
type Classifier interface {
	Classify(r fault.Record) (fault.Category, fault.Severity)
}

// Manager coordinates one capture session: it owns the record log, the
// classifier, and the attached interceptors. All methods are safe for
// concurrent use.
type Manager struct {
	mu           sync.Mutex
	opts         Options
	state        State
	sessionID    string
	seq          int
	log          []fault.Record
	interceptors []Interceptor

	classifier Classifier
	recorder   metrics.Recorder
	logger     *slog.Logger
}

// NewManager constructs an uninitialized manager. A nil classifier gets the
// default rule set. The logger must write to the host's base (unwrapped)
// handler so the framework can never observe its own diagnostics.
func NewManager(opts Options, classifier Classifier) *Manager {
	if classifier == nil {
		classifier = classify.New()
	}
	return &Manager{
		opts:       opts,
		state:      StateUninitialized,
		sessionID:  uuid.NewString(),
		classifier: classifier,
		recorder:   metrics.NoopRecorder{},
		logger:     slog.Default(),
	}
}

// SetRecorder injects a metrics recorder.
func (m *Manager) SetRecorder(r metrics.Recorder) {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = r
}

// SetLogger injects the internal diagnostics logger.
func (m *Manager) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = l
}

// Options returns the option set the manager was built with.
func (m *Manager) Options() Options {
	return m.opts
}

// SessionID returns the current session identifier.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Initialize attaches the given interceptors and activates the session.
// Calling it again without an intervening teardown warns and does nothing; a
// torn-down manager cannot be reinitialized.
func (m *Manager) Initialize(interceptors ...Interceptor) error {
	m.mu.Lock()
	switch m.state {
	case StateActive:
		m.mu.Unlock()
		m.logger.Warn("capture manager already initialized, ignoring", "session_id", m.sessionID)
		return nil
	case StateTornDown:
		m.mu.Unlock()
		return fmt.Errorf("capture manager is torn down; construct a new manager instead of reinitializing")
	}
	m.state = StateActive
	m.interceptors = append(m.interceptors, interceptors...)
	attached := make([]Interceptor, len(interceptors))
	copy(attached, interceptors)
	m.mu.Unlock()

	for _, ic := range attached {
		if err := ic.Attach(m); err != nil {
			return fmt.Errorf("attach %s interceptor: %w", ic.Name(), err)
		}
		m.logger.Debug("interceptor attached", "interceptor", ic.Name(), "session_id", m.SessionID())
	}
	return nil
}

// Capture normalizes a raw observation into a record, classifies it, and
// appends it to the session log. It never panics and never blocks on I/O:
// interceptors call it synchronously inside the callback that detected the
// fault. Outside the Active state it is a silent no-op. Identical faults are
// never de-duplicated; each observation appends exactly one record.
func (m *Manager) Capture(ev RawEvent) {
	defer func() {
		if r := recover(); r != nil {
			// Instrumentation must never become a crash source.
			m.logger.Error("capture failed internally", "panic", r)
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		m.recorder.IncDropped(m.state.String())
		return
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	m.seq++
	rec := fault.Record{
		ID:        fmt.Sprintf("err-%04d", m.seq),
		SessionID: m.sessionID,
		Timestamp: ts,
		Source:    ev.Source,
		Message:   ev.Message,
		Stack:     ev.Stack,
		Context:   ev.Context,
	}
	rec.Category, rec.Severity = m.safeClassify(rec)
	m.log = append(m.log, rec)
	m.recorder.IncCaptured(string(rec.Source), string(rec.Category), rec.Severity.String())
}

// safeClassify degrades a classification failure to the low-confidence
// fallback instead of losing the observation.
func (m *Manager) safeClassify(rec fault.Record) (category fault.Category, severity fault.Severity) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("classification failed, storing unclassified", "record_id", rec.ID, "panic", r)
			category = fault.CategoryUnclassified
			severity = fault.SeverityMedium
		}
	}()
	category, severity = m.classifier.Classify(rec)
	if category == "" {
		category = fault.CategoryUnclassified
	}
	return category, severity
}

// Snapshot returns an immutable copy of the session log in capture order.
func (m *Manager) Snapshot() []fault.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]fault.Record, len(m.log))
	copy(out, m.log)
	return out
}

// Query returns a lazy, restartable sequence over a snapshot of the log.
// Ranging over the sequence multiple times replays the same records; captures
// that happen after the call are not visible through it.
func (m *Manager) Query(f fault.Filter) iter.Seq[fault.Record] {
	snap := m.Snapshot()
	return func(yield func(fault.Record) bool) {
		for _, r := range snap {
			if !f.Matches(r) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Collect materializes a query into a slice.
func (m *Manager) Collect(f fault.Filter) []fault.Record {
	var out []fault.Record
	for r := range m.Query(f) {
		out = append(out, r)
	}
	return out
}

// Count returns the number of records matching the filter.
func (m *Manager) Count(f fault.Filter) int {
	n := 0
	for range m.Query(f) {
		n++
	}
	return n
}

// Reset clears the log and issues a fresh session ID, isolating the next
// scenario from records captured before the call.
func (m *Manager) Reset() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
	m.seq = 0
	m.sessionID = uuid.NewString()
	m.logger.Debug("capture session reset", "session_id", m.sessionID)
	return m.sessionID
}

// Teardown detaches all interceptors and ends the session. Records already
// stored remain queryable; captures arriving mid-teardown are dropped
// silently. Teardown is terminal and idempotent.
func (m *Manager) Teardown() {
	m.mu.Lock()
	if m.state == StateTornDown {
		m.mu.Unlock()
		return
	}
	m.state = StateTornDown
	detached := m.interceptors
	m.interceptors = nil
	m.mu.Unlock()

	for _, ic := range detached {
		ic.Detach()
		m.logger.Debug("interceptor detached", "interceptor", ic.Name())
	}
}
