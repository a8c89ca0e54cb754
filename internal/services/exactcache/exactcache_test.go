package exactcache

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"adaptive-cache/internal/models"
)

func TestKeyIsDeterministicAndPrefixed(t *testing.T) {
	k1 := Key("what is a goroutine?")
	k2 := Key("what is a goroutine?")
	k3 := Key("what is a channel?")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.True(t, strings.HasPrefix(k1, "adaptive-cache:exact:"))
}

func TestDisabledTierIsNilSafe(t *testing.T) {
	ec := New(nil, models.ExactCacheConfig{})
	ctx := context.Background()

	assert.False(t, ec.Enabled())

	_, ok := ec.Get(ctx, "anything")
	assert.False(t, ok)

	// Set and Clear must be no-ops, not panics.
	ec.Set(ctx, "anything", &CachedResponse{Response: "r"})
	assert.NoError(t, ec.Clear(ctx))
	assert.NoError(t, ec.Health(ctx))
}
