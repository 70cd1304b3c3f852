package admin

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var createScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'max', ARGV[1], 'used', 0, 'created', ARGV[2])
return 1
`)

// Returns -2 unknown code, -1 quota exhausted, 0 already claimed, 1 claimed.
var claimScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -2
end
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then
	return 0
end
local used = tonumber(redis.call('HGET', KEYS[1], 'used'))
local max = tonumber(redis.call('HGET', KEYS[1], 'max'))
if used >= max then
	return -1
end
redis.call('SADD', KEYS[2], ARGV[1])
redis.call('HINCRBY', KEYS[1], 'used', 1)
return 1
`)

// RedisStore keeps each code as a hash plus a set of claimed room codes.
type RedisStore struct {
	client *goredis.Client
}

func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func codeKey(code string) string  { return "admin:" + code }
func roomsKey(code string) string { return "admin:" + code + ":rooms" }

func (s *RedisStore) Create(ctx context.Context, code string, maxRooms int) error {
	created, err := createScript.Run(ctx, s.client, []string{codeKey(code)},
		maxRooms, time.Now().Unix()).Int()
	if err != nil {
		return fmt.Errorf("create admin code: %w", err)
	}
	if created == 0 {
		return ErrCodeExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, code string) (Code, error) {
	fields, err := s.client.HGetAll(ctx, codeKey(code)).Result()
	if err != nil {
		return Code{}, fmt.Errorf("load admin code: %w", err)
	}
	if len(fields) == 0 {
		return Code{}, ErrCodeNotFound
	}

	rooms, err := s.client.SMembers(ctx, roomsKey(code)).Result()
	if err != nil {
		return Code{}, fmt.Errorf("load admin code rooms: %w", err)
	}
	slices.Sort(rooms)

	maxRooms, _ := strconv.Atoi(fields["max"])
	used, _ := strconv.Atoi(fields["used"])
	created, _ := strconv.ParseInt(fields["created"], 10, 64)

	return Code{
		Code:      code,
		MaxRooms:  maxRooms,
		UsedCount: used,
		RoomCodes: rooms,
		CreatedAt: time.Unix(created, 0),
	}, nil
}

func (s *RedisStore) Claim(ctx context.Context, code, roomCode string) (Code, error) {
	res, err := claimScript.Run(ctx, s.client, []string{codeKey(code), roomsKey(code)}, roomCode).Int()
	if err != nil {
		return Code{}, fmt.Errorf("claim room code: %w", err)
	}

	switch res {
	case -2:
		return Code{}, ErrCodeNotFound
	case -1:
		c, err := s.Get(ctx, code)
		if err != nil {
			return Code{}, err
		}
		return c, ErrQuotaExceeded
	}
	return s.Get(ctx, code)
}
