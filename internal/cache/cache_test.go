package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisFromClient(rdb, "imsauth")
}

func backends(t *testing.T) map[string]Client {
	_, r := newMiniRedis(t)
	return map[string]Client{
		"memory": NewMemory("imsauth"),
		"redis":  r,
	}
}

func TestClient_SetGet(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Get(ctx, "missing")
			assert.True(t, IsNotFound(err))

			require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
			v, err := c.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "v", v)

			// Get no consume
			v, err = c.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "v", v)
		})
	}
}

func TestClient_GetDelConsumesOnce(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "code:abc", "payload", time.Minute))

			v, err := c.GetDel(ctx, "code:abc")
			require.NoError(t, err)
			assert.Equal(t, "payload", v)

			_, err = c.GetDel(ctx, "code:abc")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = c.Get(ctx, "code:abc")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestClient_GetDelConcurrent(t *testing.T) {
	ctx := context.Background()
	const workers = 32
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "code:race", "payload", time.Minute))

			var wins, losses atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					if _, err := c.GetDel(ctx, "code:race"); err == nil {
						wins.Add(1)
					} else if IsNotFound(err) {
						losses.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
			assert.Equal(t, int32(workers-1), losses.Load())
		})
	}
}

func TestRedis_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	mr, c := newMiniRedis(t)

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Second))
	assert.True(t, mr.Exists("imsauth:k"))

	mr.FastForward(11 * time.Second)
	_, err := c.GetDel(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "memcached"})
	assert.Error(t, err)

	c, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))
}
