// Package intercept implements the four fault-surface observers. Every
// interceptor observes without mutating default behavior: logged records still
// reach the host's log sink, failed requests still reach their caller, task
// errors and panics still propagate, and action errors are re-returned
// unchanged. Instrumentation-path failures are swallowed internally so
// observation can never become a crash source.
package intercept

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/faultwatch/internal/capture"
	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// sinkHolder is the shared attach/detach mechanism: wrappers read the current
// sink through it, so detaching releases the manager reference while wrapped
// chokepoints keep working as pass-throughs.
type sinkHolder struct {
	mu   sync.RWMutex
	sink capture.Sink
}

func (h *sinkHolder) attach(s capture.Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = s
}

func (h *sinkHolder) detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = nil
}

// capture forwards an observation to the attached sink, if any. A panic from
// the sink is contained here; the surrounding host call proceeds untouched.
func (h *sinkHolder) capture(ev capture.RawEvent) {
	defer func() {
		_ = recover()
	}()
	h.mu.RLock()
	s := h.sink
	h.mu.RUnlock()
	if s != nil {
		s.Capture(ev)
	}
}

// LogInterceptor observes the host's error-level logging call by wrapping its
// slog handler. Every record is forwarded to the wrapped handler unchanged;
// records at error level or above are additionally captured.
type LogInterceptor struct {
	holder sinkHolder
}

// NewLogInterceptor returns an unattached log interceptor.
func NewLogInterceptor() *LogInterceptor {
	return &LogInterceptor{}
}

func (l *LogInterceptor) Name() string { return "log" }

func (l *LogInterceptor) Attach(s capture.Sink) error {
	l.holder.attach(s)
	return nil
}

func (l *LogInterceptor) Detach() {
	l.holder.detach()
}

// Wrap returns a handler that observes error-level records before forwarding
// everything to next. The host installs the returned handler in its logger;
// the framework's own diagnostics must keep using next directly.
func (l *LogInterceptor) Wrap(next slog.Handler) slog.Handler {
	return &captureHandler{next: next, ic: l}
}

type captureHandler struct {
	next slog.Handler
	ic   *LogInterceptor
}

func (h *captureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		h.observe(r)
	}
	return h.next.Handle(ctx, r)
}

// observe normalizes one error-level record. The "error" / "err" attr, the
// conventional slog error carrier, is folded into the message so message-based
// classification rules see the underlying cause.
func (h *captureHandler) observe(r slog.Record) {
	msg := r.Message
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	if errVal, ok := attrs["error"]; ok {
		msg = fmt.Sprintf("%s: %v", msg, errVal)
	} else if errVal, ok := attrs["err"]; ok {
		msg = fmt.Sprintf("%s: %v", msg, errVal)
	}

	h.ic.holder.capture(capture.RawEvent{
		Source:    fault.SourceLog,
		Message:   msg,
		Context:   attrs,
		Timestamp: r.Time,
	})
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{next: h.next.WithAttrs(attrs), ic: h.ic}
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	return &captureHandler{next: h.next.WithGroup(name), ic: h.ic}
}
