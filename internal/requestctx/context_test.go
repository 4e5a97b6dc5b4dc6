package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallerID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CallerID(ctx))

	ctx = SetCallerID(ctx, "key-1")
	assert.Equal(t, "key-1", CallerID(ctx))

	ctx = SetCallerID(ctx, "key-2")
	assert.Equal(t, "key-2", CallerID(ctx))
}
