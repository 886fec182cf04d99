package intercept

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"git.home.luguber.info/inful/faultwatch/internal/capture"
	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// TaskInterceptor observes failures from spawned background tasks: an error
// returned by a task is recorded as an unhandled rejection, a recovered panic
// as an uncaught exception. Panics are re-raised after capture unless the
// session was configured to suppress them, so default crash semantics are
// preserved.
type TaskInterceptor struct {
	holder         sinkHolder
	suppressPanics bool
}

// NewTaskInterceptor returns an unattached task interceptor.
func NewTaskInterceptor(suppressPanics bool) *TaskInterceptor {
	return &TaskInterceptor{suppressPanics: suppressPanics}
}

func (t *TaskInterceptor) Name() string { return "task" }

func (t *TaskInterceptor) Attach(s capture.Sink) error {
	t.holder.attach(s)
	return nil
}

func (t *TaskInterceptor) Detach() {
	t.holder.detach()
}

// Runner builds a task runner wired to this interceptor. onError is the
// host's own delivery channel for task errors; capture happens first, then the
// error is handed over so the host's handling still runs. A nil onError means
// the host has no handler, which is exactly the "unhandled" case.
func (t *TaskInterceptor) Runner(onError func(task string, err error)) *Runner {
	return &Runner{ic: t, onError: onError}
}

// Runner spawns named background tasks and observes their failures.
type Runner struct {
	ic      *TaskInterceptor
	onError func(task string, err error)
	wg      sync.WaitGroup
}

// Go runs fn in a new goroutine. A returned error is captured and forwarded
// to the host's error handler; a panic is captured and re-raised.
func (r *Runner) Go(ctx context.Context, task string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.ic.holder.capture(capture.RawEvent{
					Source:  fault.SourceUncaughtException,
					Message: fmt.Sprint(rec),
					Stack:   string(debug.Stack()),
					Context: map[string]any{"task": task},
				})
				if !r.ic.suppressPanics {
					panic(rec)
				}
			}
		}()
		if err := fn(ctx); err != nil {
			r.ic.holder.capture(capture.RawEvent{
				Source:  fault.SourceUnhandledRejection,
				Message: err.Error(),
				Context: map[string]any{"task": task},
			})
			if r.onError != nil {
				r.onError(task, err)
			}
		}
	}()
}

// Wait blocks until every spawned task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
