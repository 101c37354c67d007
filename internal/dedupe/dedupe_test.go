package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopGuard(t *testing.T) {
	g := NewNoop()
	defer g.Close()

	first, err := g.FirstSeen(context.Background(), "event-1", time.Minute)
	assert.NoError(t, err)
	assert.True(t, first)

	again, err := g.FirstSeen(context.Background(), "event-1", time.Minute)
	assert.NoError(t, err)
	assert.True(t, again)
}
