package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, maxMessages int, ttl time.Duration) (*RedisTranscriptStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisTranscriptStore(client, maxMessages, ttl), mr
}

func TestRedisTranscriptStore_AppendAssignsIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t, 0, 0)

	out, err := s.Append(ctx, "s1",
		Message{Sender: SenderBot, Text: "welcome", QuickReplies: []string{"Pricing"}},
		Message{Sender: SenderUser, Text: "hi"},
	)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(0), out[0].ID)
	assert.Equal(t, int64(1), out[1].ID)

	out, err = s.Append(ctx, "s1", Message{Sender: SenderBot, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out[0].ID)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Pricing"}, got[0].QuickReplies)
	assert.Equal(t, "hello", got[2].Text)
	assert.False(t, got[2].CreatedAt.IsZero())

	out, err = s.Append(ctx, "s2", Message{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out[0].ID)
}

func TestRedisTranscriptStore_TrimKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t, 3, 0)
	for _, txt := range []string{"a", "b", "c", "d", "e"} {
		_, err := s.Append(ctx, "s", Message{Sender: SenderUser, Text: txt})
		require.NoError(t, err)
	}

	got, err := s.Get(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Text)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(4), got[2].ID)
}

func TestRedisTranscriptStore_SetsTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, 10, 30*time.Minute)

	_, err := s.Append(ctx, "s", Message{Text: "a"})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, mr.TTL("support:transcript:s"))
	assert.Equal(t, 30*time.Minute, mr.TTL("support:seq:s"))

	mr.FastForward(31 * time.Minute)
	got, err := s.Get(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisTranscriptStore_Clear(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, 10, 0)
	_, err := s.Append(ctx, "s", Message{Text: "a"}, Message{Text: "b"})
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "s"))
	assert.False(t, mr.Exists("support:transcript:s"))
	assert.False(t, mr.Exists("support:seq:s"))

	out, err := s.Append(ctx, "s", Message{Text: "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out[0].ID)
}

func TestRedisTranscriptStore_SeedOnce(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, 10, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Seed(ctx, "s", Message{Sender: SenderBot, Text: "welcome"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(0), got[0].ID)
	assert.Equal(t, time.Minute, mr.TTL("support:transcript:s"))

	// IDs continue after the seeded message.
	out, err := s.Append(ctx, "s", Message{Sender: SenderUser, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out[0].ID)

	got, err = s.Seed(ctx, "s", Message{Sender: SenderBot, Text: "welcome"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hi", got[1].Text)
}
