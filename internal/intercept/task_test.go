package intercept

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

func TestRunner_TaskErrorCapturedAsUnhandledRejection(t *testing.T) {
	sink := &memorySink{}
	ic := NewTaskInterceptor(false)
	require.NoError(t, ic.Attach(sink))

	var mu sync.Mutex
	var delivered []string
	runner := ic.Runner(func(task string, err error) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, task+": "+err.Error())
	})

	runner.Go(context.Background(), "load-photos", func(context.Context) error {
		return errors.New("grid data missing")
	})
	runner.Wait()

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, fault.SourceUnhandledRejection, events[0].Source)
	assert.Equal(t, "grid data missing", events[0].Message)
	assert.Equal(t, "load-photos", events[0].Context["task"])

	// Capture first, then the host's own handler still runs.
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
	assert.Equal(t, "load-photos: grid data missing", delivered[0])
}

func TestRunner_SuccessfulTaskCapturesNothing(t *testing.T) {
	sink := &memorySink{}
	ic := NewTaskInterceptor(false)
	require.NoError(t, ic.Attach(sink))

	runner := ic.Runner(nil)
	runner.Go(context.Background(), "ok", func(context.Context) error { return nil })
	runner.Wait()

	assert.Empty(t, sink.all())
}

func TestRunner_PanicCapturedAsUncaughtException(t *testing.T) {
	sink := &memorySink{}
	ic := NewTaskInterceptor(true)
	require.NoError(t, ic.Attach(sink))

	runner := ic.Runner(nil)
	runner.Go(context.Background(), "render", func(context.Context) error {
		panic("Cannot read property 'Uris' of undefined")
	})
	runner.Wait()

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, fault.SourceUncaughtException, events[0].Source)
	assert.Equal(t, "Cannot read property 'Uris' of undefined", events[0].Message)
	assert.NotEmpty(t, events[0].Stack)
	assert.Equal(t, "render", events[0].Context["task"])
}

func TestRunner_WaitBlocksUntilAllTasksFinish(t *testing.T) {
	sink := &memorySink{}
	ic := NewTaskInterceptor(true)
	require.NoError(t, ic.Attach(sink))

	runner := ic.Runner(nil)
	for i := 0; i < 5; i++ {
		runner.Go(context.Background(), "batch", func(context.Context) error {
			return errors.New("each task fails")
		})
	}
	runner.Wait()

	assert.Len(t, sink.all(), 5)
}

func TestRunner_DetachedTaskStillRuns(t *testing.T) {
	sink := &memorySink{}
	ic := NewTaskInterceptor(true)
	require.NoError(t, ic.Attach(sink))
	ic.Detach()

	ran := false
	runner := ic.Runner(nil)
	runner.Go(context.Background(), "detached", func(context.Context) error {
		ran = true
		return errors.New("unobserved failure")
	})
	runner.Wait()

	assert.True(t, ran)
	assert.Empty(t, sink.all())
}
