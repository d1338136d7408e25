package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
)

func TestIsNilError(t *testing.T) {
	assert.True(t, IsNilError(goredis.Nil))
	assert.False(t, IsNilError(errors.New("boom")))
	assert.False(t, IsNilError(nil))
}

// Runs only with MS_TEST_REDIS set; the address comes from MS_REDIS_ADDR.
func TestClientAgainstServer(t *testing.T) {
	if os.Getenv("MS_TEST_REDIS") == "" {
		t.Skip("MS_TEST_REDIS not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := NewClient(ctx, cfg.Redis)
	if err != nil {
		t.Skipf("skipping: redis unavailable: %v", err)
	}
	defer c.Close()
	c.prefix = "medsearch-test:"

	require.NoError(t, c.Set(ctx, "search:a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "search:b", []byte("2"), time.Minute))
	got, err := c.Get(ctx, "search:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	n, err := c.FlushByPattern(ctx, "search:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = c.Get(ctx, "search:a")
	assert.True(t, IsNilError(err))
}
