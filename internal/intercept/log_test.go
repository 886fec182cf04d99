package intercept

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultwatch/internal/capture"
	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// memorySink collects raw events for assertions.
type memorySink struct {
	mu     sync.Mutex
	events []capture.RawEvent
}

func (s *memorySink) Capture(ev capture.RawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *memorySink) all() []capture.RawEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]capture.RawEvent, len(s.events))
	copy(out, s.events)
	return out
}

// panickySink verifies that a broken sink cannot break the host call.
type panickySink struct{}

func (panickySink) Capture(capture.RawEvent) { panic("sink exploded") }

func TestLogInterceptor_CapturesErrorLevelOnly(t *testing.T) {
	sink := &memorySink{}
	ic := NewLogInterceptor()
	require.NoError(t, ic.Attach(sink))

	var buf bytes.Buffer
	logger := slog.New(ic.Wrap(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error("error line")

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, fault.SourceLog, events[0].Source)
	assert.Equal(t, "error line", events[0].Message)
}

func TestLogInterceptor_AlwaysForwardsToWrappedHandler(t *testing.T) {
	sink := &memorySink{}
	ic := NewLogInterceptor()
	require.NoError(t, ic.Attach(sink))

	var buf bytes.Buffer
	logger := slog.New(ic.Wrap(slog.NewTextHandler(&buf, nil)))

	logger.Info("still reaches the host sink")
	logger.Error("captured and forwarded")

	out := buf.String()
	assert.Contains(t, out, "still reaches the host sink")
	assert.Contains(t, out, "captured and forwarded")
}

func TestLogInterceptor_FoldsErrorAttrIntoMessage(t *testing.T) {
	sink := &memorySink{}
	ic := NewLogInterceptor()
	require.NoError(t, ic.Attach(sink))

	logger := slog.New(ic.Wrap(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	logger.Error("failed to load grid", "error", errors.New("Cannot read property 'Uris' of undefined"))

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "failed to load grid: Cannot read property 'Uris' of undefined", events[0].Message)
	assert.Contains(t, events[0].Context, "error")
}

func TestLogInterceptor_DetachedHandlerIsPassThrough(t *testing.T) {
	sink := &memorySink{}
	ic := NewLogInterceptor()
	require.NoError(t, ic.Attach(sink))

	var buf bytes.Buffer
	logger := slog.New(ic.Wrap(slog.NewTextHandler(&buf, nil)))

	ic.Detach()
	logger.Error("after detach")

	assert.Empty(t, sink.all())
	assert.Contains(t, buf.String(), "after detach", "forwarding must survive detach")
}

func TestLogInterceptor_SinkPanicDoesNotBreakLogging(t *testing.T) {
	ic := NewLogInterceptor()
	require.NoError(t, ic.Attach(panickySink{}))

	var buf bytes.Buffer
	logger := slog.New(ic.Wrap(slog.NewTextHandler(&buf, nil)))

	assert.NotPanics(t, func() {
		logger.Error("observation must never crash the host")
	})
	assert.Contains(t, buf.String(), "observation must never crash the host")
}

func TestLogInterceptor_WithAttrsKeepsObserving(t *testing.T) {
	sink := &memorySink{}
	ic := NewLogInterceptor()
	require.NoError(t, ic.Attach(sink))

	logger := slog.New(ic.Wrap(slog.NewTextHandler(&bytes.Buffer{}, nil))).With("component", "grid")
	logger.Error("scoped logger fault")

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "scoped logger fault", events[0].Message)
}
