package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/replydesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduperSeen(t *testing.T) {
	url := os.Getenv("REPLYDESK_TEST_REDIS_URL")
	if url == "" {
		t.Skip("REPLYDESK_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	d, err := NewDeduper(ctx, &config.RedisConfig{URL: url, DedupeTTL: time.Minute})
	require.NoError(t, err)
	defer d.Close()

	key := "test:" + uuid.NewString()
	seen, err := d.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = d.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestNop(t *testing.T) {
	seen, err := Nop{}.Seen(context.Background(), "k")
	assert.NoError(t, err)
	assert.False(t, seen)
}

func TestNewDeduperBadURL(t *testing.T) {
	_, err := NewDeduper(context.Background(), &config.RedisConfig{URL: "not a url"})
	assert.Error(t, err)
}
