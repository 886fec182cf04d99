package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogContext_AccumulatesAcrossWithCalls(t *testing.T) {
	ctx := context.Background()
	ctx = WithScenario(ctx, "photo-grid")
	ctx = WithSessionID(ctx, "s-1")
	ctx = WithSurface(ctx, "network")

	lc := GetContext(ctx)
	assert.Equal(t, "photo-grid", lc.Scenario)
	assert.Equal(t, "s-1", lc.SessionID)
	assert.Equal(t, "network", lc.Surface)
}

func TestLogContext_LaterWriteWins(t *testing.T) {
	ctx := WithSessionID(context.Background(), "s-1")
	ctx = WithSessionID(ctx, "s-2")

	assert.Equal(t, "s-2", GetContext(ctx).SessionID)
}

func TestGetContext_EmptyWithoutValues(t *testing.T) {
	assert.Equal(t, LogContext{}, GetContext(context.Background()))
}

func TestGetLogAttrs_SkipsEmptyFields(t *testing.T) {
	ctx := WithScenario(context.Background(), "only-scenario")
	attrs := getLogAttrs(ctx)
	assert.Len(t, attrs, 1)
	assert.Equal(t, "scenario", attrs[0].Key)
}
