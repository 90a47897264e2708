package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTranscriptStore keeps each transcript as a JSON list that expires after ttl.
type RedisTranscriptStore struct {
	client      *redis.Client
	maxMessages int
	ttl         time.Duration
	prefix      string
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

func NewRedisTranscriptStore(client *redis.Client, maxMessages int, ttl time.Duration) *RedisTranscriptStore {
	return &RedisTranscriptStore{client: client, maxMessages: maxMessages, ttl: ttl, prefix: "support"}
}

func (s *RedisTranscriptStore) listKey(sessionID string) string {
	return s.prefix + ":transcript:" + sessionID
}

func (s *RedisTranscriptStore) seqKey(sessionID string) string {
	return s.prefix + ":seq:" + sessionID
}

func (s *RedisTranscriptStore) Append(ctx context.Context, sessionID string, msgs ...Message) ([]Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	last, err := s.client.IncrBy(ctx, s.seqKey(sessionID), int64(len(msgs))).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate message ids: %w", err)
	}
	first := last - int64(len(msgs))

	out := make([]Message, 0, len(msgs))
	values := make([]any, 0, len(msgs))
	for i, msg := range msgs {
		msg.ID = first + int64(i)
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}
		b, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode message: %w", err)
		}
		values = append(values, b)
		out = append(out, msg)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, s.listKey(sessionID), values...)
		if s.maxMessages > 0 {
			p.LTrim(ctx, s.listKey(sessionID), int64(-s.maxMessages), -1)
		}
		if s.ttl > 0 {
			p.Expire(ctx, s.listKey(sessionID), s.ttl)
			p.Expire(ctx, s.seqKey(sessionID), s.ttl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append transcript: %w", err)
	}
	return out, nil
}

// seedScript writes the first message with ID 0 when the sequence key does not
// exist yet, then returns the whole list.
// KEYS[1] list, KEYS[2] seq; ARGV[1] encoded message, ARGV[2] ttl in ms.
var seedScript = redis.NewScript(`
if redis.call("SETNX", KEYS[2], 1) == 1 then
	redis.call("RPUSH", KEYS[1], ARGV[1])
	local ttl = tonumber(ARGV[2])
	if ttl > 0 then
		redis.call("PEXPIRE", KEYS[1], ttl)
		redis.call("PEXPIRE", KEYS[2], ttl)
	end
end
return redis.call("LRANGE", KEYS[1], 0, -1)
`)

func (s *RedisTranscriptStore) Seed(ctx context.Context, sessionID string, msg Message) ([]Message, error) {
	msg.ID = 0
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	raw, err := seedScript.Run(ctx, s.client,
		[]string{s.listKey(sessionID), s.seqKey(sessionID)},
		string(b), s.ttl.Milliseconds(),
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to seed transcript: %w", err)
	}
	return decodeMessages(raw)
}

func (s *RedisTranscriptStore) Get(ctx context.Context, sessionID string) ([]Message, error) {
	raw, err := s.client.LRange(ctx, s.listKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return decodeMessages(raw)
}

func decodeMessages(raw []string) ([]Message, error) {
	out := make([]Message, 0, len(raw))
	for _, r := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(r), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisTranscriptStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.listKey(sessionID), s.seqKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}
