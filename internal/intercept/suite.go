package intercept

import (
	"log/slog"
	"net/http"
	"os"

	"git.home.luguber.info/inful/faultwatch/internal/action"
	"git.home.luguber.info/inful/faultwatch/internal/capture"
)

// Collaborators are the host chokepoints the interceptors wrap. Zero values
// get stdlib defaults; a nil Actions registry gets an empty one.
type Collaborators struct {
	// LogHandler is the host's base log sink. The framework's own diagnostics
	// must log through this handler directly, never through the wrapped one.
	LogHandler slog.Handler
	// Transport is the outbound-request chokepoint.
	Transport http.RoundTripper
	// Actions is the host's named-action registry.
	Actions *action.Registry
	// OnTaskError is the host's delivery channel for background task errors.
	// May be nil when the host has no handler.
	OnTaskError func(task string, err error)
}

// Suite eagerly composes the optional interceptors selected by the session
// options. Disabled surfaces keep working as plain pass-throughs: the wrapper
// exists but is never attached to a sink, so nothing is observed.
type Suite struct {
	logIC     *LogInterceptor
	networkIC *NetworkInterceptor
	taskIC    *TaskInterceptor
	actionIC  *ActionInterceptor

	enabled   []capture.Interceptor
	handler   slog.Handler
	transport http.RoundTripper
	registry  *ObservedRegistry
	runner    *Runner
}

// NewSuite wires the wrapped chokepoints for the given options. The returned
// suite's Interceptors go to Manager.Initialize; its Handler, Transport,
// Registry, and Runner replace the host's originals.
func NewSuite(opts capture.Options, c Collaborators) *Suite {
	if c.LogHandler == nil {
		c.LogHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	if c.Transport == nil {
		c.Transport = http.DefaultTransport
	}
	if c.Actions == nil {
		c.Actions = action.NewRegistry()
	}

	s := &Suite{
		logIC:     NewLogInterceptor(),
		networkIC: NewNetworkInterceptor(),
		taskIC:    NewTaskInterceptor(opts.SuppressPanics),
		actionIC:  NewActionInterceptor(),
	}

	s.handler = s.logIC.Wrap(c.LogHandler)
	s.transport = s.networkIC.Wrap(c.Transport)
	s.registry = s.actionIC.Wrap(c.Actions)
	s.runner = s.taskIC.Runner(c.OnTaskError)

	if opts.CaptureLogErrors {
		s.enabled = append(s.enabled, s.logIC)
	}
	if opts.CaptureNetworkErrors {
		s.enabled = append(s.enabled, s.networkIC)
	}
	if opts.CaptureUnhandledRejections {
		s.enabled = append(s.enabled, s.taskIC)
	}
	if opts.CaptureAgentErrors {
		s.enabled = append(s.enabled, s.actionIC)
	}
	return s
}

// Interceptors returns the enabled interceptors for Manager.Initialize.
func (s *Suite) Interceptors() []capture.Interceptor {
	out := make([]capture.Interceptor, len(s.enabled))
	copy(out, s.enabled)
	return out
}

// Handler is the host logger's handler with error-level observation.
func (s *Suite) Handler() slog.Handler { return s.handler }

// Transport is the observed outbound-request chokepoint.
func (s *Suite) Transport() http.RoundTripper { return s.transport }

// Registry is the observed view of the host's action registry.
func (s *Suite) Registry() *ObservedRegistry { return s.registry }

// Runner spawns observed background tasks.
func (s *Suite) Runner() *Runner { return s.runner }
