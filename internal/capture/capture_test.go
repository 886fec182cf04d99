package capture

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// recordingInterceptor tracks its own lifecycle for the tests.
type recordingInterceptor struct {
	mu       sync.Mutex
	sink     Sink
	attached int
	detached int
}

func (r *recordingInterceptor) Name() string { return "recording" }

func (r *recordingInterceptor) Attach(s Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = s
	r.attached++
	return nil
}

func (r *recordingInterceptor) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = nil
	r.detached++
}

// panickyClassifier simulates a broken custom rule.
type panickyClassifier struct{}

func (panickyClassifier) Classify(fault.Record) (fault.Category, fault.Severity) {
	panic("rule exploded")
}

func TestManager_Lifecycle(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	assert.Equal(t, StateUninitialized, mgr.State())

	ic := &recordingInterceptor{}
	require.NoError(t, mgr.Initialize(ic))
	assert.Equal(t, StateActive, mgr.State())
	assert.Equal(t, 1, ic.attached)

	mgr.Teardown()
	assert.Equal(t, StateTornDown, mgr.State())
	assert.Equal(t, 1, ic.detached)
}

func TestManager_DoubleInitializeIsIgnored(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	ic := &recordingInterceptor{}

	require.NoError(t, mgr.Initialize(ic))
	require.NoError(t, mgr.Initialize(ic))
	assert.Equal(t, 1, ic.attached, "second initialize must not re-attach")
}

func TestManager_InitializeAfterTeardownFails(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	require.NoError(t, mgr.Initialize())
	mgr.Teardown()

	err := mgr.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "torn down")
}

func TestManager_TeardownIsIdempotent(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	ic := &recordingInterceptor{}
	require.NoError(t, mgr.Initialize(ic))

	mgr.Teardown()
	mgr.Teardown()
	assert.Equal(t, 1, ic.detached)
}

func TestManager_CaptureAppendsOneRecordPerObservation(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	require.NoError(t, mgr.Initialize())

	// Identical faults are never de-duplicated.
	for i := 0; i < 3; i++ {
		mgr.Capture(RawEvent{Source: fault.SourceLog, Message: "same message"})
	}

	records := mgr.Snapshot()
	require.Len(t, records, 3)
	assert.Equal(t, "err-0001", records[0].ID)
	assert.Equal(t, "err-0002", records[1].ID)
	assert.Equal(t, "err-0003", records[2].ID)
	for _, r := range records {
		assert.Equal(t, mgr.SessionID(), r.SessionID)
		assert.NotEmpty(t, r.Category, "records are never stored unclassified")
		assert.False(t, r.Timestamp.IsZero())
	}
}

func TestManager_CaptureOutsideActiveIsNoOp(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)

	mgr.Capture(RawEvent{Source: fault.SourceLog, Message: "before init"})
	assert.Empty(t, mgr.Snapshot())

	require.NoError(t, mgr.Initialize())
	mgr.Teardown()

	mgr.Capture(RawEvent{Source: fault.SourceLog, Message: "after teardown"})
	assert.Empty(t, mgr.Snapshot())
}

func TestManager_TeardownKeepsRecordsQueryable(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	require.NoError(t, mgr.Initialize())
	mgr.Capture(RawEvent{Source: fault.SourceAgentAction, Message: "action search-photos failed"})
	mgr.Teardown()

	records := mgr.Snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, fault.SourceAgentAction, records[0].Source)
}

func TestManager_ClassificationFailureDegradesToUnclassified(t *testing.T) {
	mgr := NewManager(DefaultOptions(), panickyClassifier{})
	require.NoError(t, mgr.Initialize())

	mgr.Capture(RawEvent{Source: fault.SourceLog, Message: "boom"})

	records := mgr.Snapshot()
	require.Len(t, records, 1, "the observation must survive the broken classifier")
	assert.Equal(t, fault.CategoryUnclassified, records[0].Category)
	assert.Equal(t, fault.SeverityMedium, records[0].Severity)
}

func TestManager_ResetIsolatesSessions(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	require.NoError(t, mgr.Initialize())

	first := mgr.SessionID()
	mgr.Capture(RawEvent{Source: fault.SourceLog, Message: "first session"})

	second := mgr.Reset()
	assert.NotEqual(t, first, second)
	assert.Empty(t, mgr.Snapshot())

	mgr.Capture(RawEvent{Source: fault.SourceLog, Message: "second session"})
	records := mgr.Snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, second, records[0].SessionID)
	assert.Equal(t, "err-0001", records[0].ID, "record numbering restarts per session")
}

func TestManager_SnapshotIsACopy(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	require.NoError(t, mgr.Initialize())
	mgr.Capture(RawEvent{Source: fault.SourceLog, Message: "original"})

	snap := mgr.Snapshot()
	snap[0].Message = "mutated"

	assert.Equal(t, "original", mgr.Snapshot()[0].Message)
}

func TestManager_QueryIsLazyAndRestartable(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	require.NoError(t, mgr.Initialize())
	mgr.Capture(RawEvent{Source: fault.SourceLog, Message: "hook cleanup failed"})
	mgr.Capture(RawEvent{Source: fault.SourceNetworkFailure, Message: "GET /x returned 500"})

	seq := mgr.Query(fault.Filter{Sources: []fault.SourceType{fault.SourceLog}})

	// Captures after the query call are not visible through it.
	mgr.Capture(RawEvent{Source: fault.SourceLog, Message: "late arrival"})

	for i := 0; i < 2; i++ {
		var got []fault.Record
		for r := range seq {
			got = append(got, r)
		}
		require.Len(t, got, 1, "iteration %d", i)
		assert.Equal(t, "hook cleanup failed", got[0].Message)
	}
}

func TestManager_CollectAndCount(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	require.NoError(t, mgr.Initialize())
	mgr.Capture(RawEvent{Source: fault.SourceAgentAction, Message: "action fetch failed"})
	mgr.Capture(RawEvent{Source: fault.SourceLog, Message: "minor warning logged as error"})

	min := fault.SeverityCritical
	critical := mgr.Collect(fault.Filter{MinSeverity: &min})
	require.Len(t, critical, 1)
	assert.Equal(t, fault.SourceAgentAction, critical[0].Source)
	assert.Equal(t, 2, mgr.Count(fault.Filter{}))
}

func TestManager_ConcurrentCaptures(t *testing.T) {
	mgr := NewManager(DefaultOptions(), nil)
	require.NoError(t, mgr.Initialize())

	const workers = 8
	const perWorker = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				mgr.Capture(RawEvent{
					Source:  fault.SourceLog,
					Message: fmt.Sprintf("worker %d fault %d", w, i),
				})
			}
		}(w)
	}
	wg.Wait()

	records := mgr.Snapshot()
	require.Len(t, records, workers*perWorker)
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		assert.False(t, seen[r.ID], "duplicate record ID %s", r.ID)
		seen[r.ID] = true
	}
}
