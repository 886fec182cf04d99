package intercept

import (
	"context"
	"fmt"
	"runtime/debug"

	"git.home.luguber.info/inful/faultwatch/internal/action"
	"git.home.luguber.info/inful/faultwatch/internal/capture"
	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// ActionInterceptor observes execution of entries in the host's named-action
// registry. Errors and panics are captured with the action name and sanitized
// parameters, then re-returned or re-raised unchanged so the caller's own
// error handling still runs.
type ActionInterceptor struct {
	holder sinkHolder
}

// NewActionInterceptor returns an unattached action interceptor.
func NewActionInterceptor() *ActionInterceptor {
	return &ActionInterceptor{}
}

func (a *ActionInterceptor) Name() string { return "action" }

func (a *ActionInterceptor) Attach(s capture.Sink) error {
	a.holder.attach(s)
	return nil
}

func (a *ActionInterceptor) Detach() {
	a.holder.detach()
}

// Wrap returns an observed view of the registry. The underlying registry is
// untouched; only invocations through the returned view are observed.
func (a *ActionInterceptor) Wrap(base *action.Registry) *ObservedRegistry {
	return &ObservedRegistry{base: base, ic: a}
}

// ObservedRegistry invokes registry entries under observation.
type ObservedRegistry struct {
	base *action.Registry
	ic   *ActionInterceptor
}

// Invoke runs the named action. Invoking an unregistered name is a caller
// error, not an observed fault.
func (o *ObservedRegistry) Invoke(ctx context.Context, name string, params map[string]any) (result any, err error) {
	h, ok := o.base.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("action %q is not registered", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			o.ic.holder.capture(capture.RawEvent{
				Source:  fault.SourceAgentAction,
				Message: fmt.Sprintf("action %s panicked: %v", name, rec),
				Stack:   string(debug.Stack()),
				Context: map[string]any{
					"action": name,
					"params": SanitizeParams(params),
				},
			})
			panic(rec)
		}
	}()

	result, err = h(ctx, params)
	if err != nil {
		o.ic.holder.capture(capture.RawEvent{
			Source:  fault.SourceAgentAction,
			Message: fmt.Sprintf("action %s failed: %v", name, err),
			Context: map[string]any{
				"action": name,
				"params": SanitizeParams(params),
			},
		})
	}
	return result, err
}

// Names exposes the underlying registry's action names.
func (o *ObservedRegistry) Names() []string {
	return o.base.Names()
}
