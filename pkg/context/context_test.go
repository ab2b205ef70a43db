package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunScopedValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRunID(ctx))
	assert.Empty(t, LogFields(ctx))

	ctx = SetRunID(ctx, "run-1")
	ctx = SetResourceType(ctx, "game")
	ctx = SetRequestID(ctx, "req-1")

	assert.Equal(t, "run-1", GetRunID(ctx))
	assert.Equal(t, "game", GetResourceType(ctx))
	assert.Equal(t, map[string]any{
		"request_id":    "req-1",
		"run_id":        "run-1",
		"resource_type": "game",
	}, LogFields(ctx))
}
